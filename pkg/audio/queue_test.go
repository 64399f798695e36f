package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
)

func frameWithSeq(seq uint64) audio.Frame {
	return audio.Frame{Data: make([]byte, audio.FrameBytes), Seq: seq, CapturedAt: time.Now()}
}

func TestFrameQueue_FIFO(t *testing.T) {
	q := audio.NewFrameQueue(4)
	defer q.Close()

	for i := uint64(0); i < 3; i++ {
		q.Enqueue(frameWithSeq(i))
	}
	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}

	ctx := context.Background()
	for i := uint64(0); i < 3; i++ {
		f, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if f.Seq != i {
			t.Errorf("dequeue %d: got seq %d, want %d", i, f.Seq, i)
		}
	}
}

func TestFrameQueue_DropOldest(t *testing.T) {
	q := audio.NewFrameQueue(2)
	defer q.Close()

	q.Enqueue(frameWithSeq(0))
	q.Enqueue(frameWithSeq(1))
	// Queue is full: this must evict seq 0, never block.
	q.Enqueue(frameWithSeq(2))

	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped frame, got %d", q.Dropped())
	}

	ctx := context.Background()
	f, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Seq != 1 {
		t.Errorf("oldest surviving frame: got seq %d, want 1", f.Seq)
	}
	f, err = q.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Seq != 2 {
		t.Errorf("got seq %d, want 2", f.Seq)
	}
}

func TestFrameQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := audio.NewFrameQueue(4)
	defer q.Close()

	done := make(chan audio.Frame, 1)
	go func() {
		f, err := q.Dequeue(context.Background())
		if err != nil {
			t.Errorf("dequeue: %v", err)
		}
		done <- f
	}()

	// Give the goroutine a moment to block.
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(frameWithSeq(7))

	select {
	case f := <-done:
		if f.Seq != 7 {
			t.Errorf("got seq %d, want 7", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestFrameQueue_DequeueContextCancel(t *testing.T) {
	q := audio.NewFrameQueue(4)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after cancel")
	}
}

func TestFrameQueue_CloseDrainsBufferedFrames(t *testing.T) {
	q := audio.NewFrameQueue(4)
	q.Enqueue(frameWithSeq(0))
	q.Enqueue(frameWithSeq(1))
	q.Close()

	ctx := context.Background()
	for i := uint64(0); i < 2; i++ {
		f, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d after close: %v", i, err)
		}
		if f.Seq != i {
			t.Errorf("got seq %d, want %d", f.Seq, i)
		}
	}

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, audio.ErrQueueClosed) {
		t.Errorf("got %v, want ErrQueueClosed", err)
	}
}

func TestFrameQueue_EnqueueAfterCloseIgnored(t *testing.T) {
	q := audio.NewFrameQueue(4)
	q.Close()
	q.Enqueue(frameWithSeq(0))
	if q.Len() != 0 {
		t.Errorf("expected empty queue after post-close enqueue, got len %d", q.Len())
	}
}

func TestFrameQueue_CloseIdempotent(t *testing.T) {
	q := audio.NewFrameQueue(4)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	if !errors.Is(err, audio.ErrQueueClosed) {
		t.Errorf("got %v, want ErrQueueClosed", err)
	}
}

func TestFrameQueue_CloseWakesAllWaiters(t *testing.T) {
	q := audio.NewFrameQueue(4)

	const waiters = 3
	errs := make(chan error, waiters)
	for range waiters {
		go func() {
			_, err := q.Dequeue(context.Background())
			errs <- err
		}()
	}

	// Let all waiters park on the empty queue before closing.
	time.Sleep(20 * time.Millisecond)
	q.Close()

	for i := 0; i < waiters; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, audio.ErrQueueClosed) {
				t.Errorf("waiter %d: got %v, want ErrQueueClosed", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d did not wake after Close", i)
		}
	}
}

func TestFrameQueue_ConcurrentProducerConsumer(t *testing.T) {
	const total = 200
	q := audio.NewFrameQueue(total) // large enough that nothing drops

	go func() {
		for i := uint64(0); i < total; i++ {
			q.Enqueue(frameWithSeq(i))
		}
		q.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var next uint64
	for {
		f, err := q.Dequeue(ctx)
		if errors.Is(err, audio.ErrQueueClosed) {
			break
		}
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if f.Seq != next {
			t.Fatalf("out of order: got seq %d, want %d", f.Seq, next)
		}
		next++
	}
	if next != total {
		t.Errorf("consumed %d frames, want %d", next, total)
	}
	if q.Dropped() != 0 {
		t.Errorf("unexpected drops: %d", q.Dropped())
	}
}
