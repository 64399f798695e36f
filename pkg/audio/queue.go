package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned by Dequeue after Close when no buffered frames
// remain.
var ErrQueueClosed = errors.New("audio: frame queue closed")

// FrameQueue is a bounded FIFO hand-off between the real-time capture
// callback and the background processing loop.
//
// Enqueue never blocks: when the queue is full the oldest buffered frame is
// dropped so the stream stays fresh for voice-activity detection. Dequeue
// blocks until a frame is available, the context is cancelled, or the queue
// is closed and drained.
//
// Each frame is delivered to exactly one Dequeue caller.
//
// All methods are safe for concurrent use.
type FrameQueue struct {
	mu       sync.Mutex
	notEmpty chan struct{} // 1-buffered wakeup signal for blocked Dequeue callers
	frames   []Frame
	head     int
	size     int
	closed   bool
	dropped  uint64

	warnOnce sync.Once
}

// NewFrameQueue creates a queue holding at most capacity frames. A capacity
// of one second of audio (20 frames at 50 ms) absorbs normal processing
// jitter without masking a stalled consumer.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = 20
	}
	return &FrameQueue{
		notEmpty: make(chan struct{}, 1),
		frames:   make([]Frame, capacity),
	}
}

// Enqueue adds frame to the queue without blocking. When the queue is full
// the oldest frame is dropped and the drop is counted; the first drop is
// logged as a warning.
func (q *FrameQueue) Enqueue(frame Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	overflowed := false
	if q.size == len(q.frames) {
		// Drop-oldest: free the head slot.
		q.frames[q.head] = Frame{}
		q.head = (q.head + 1) % len(q.frames)
		q.size--
		q.dropped++
		overflowed = true
	}
	tail := (q.head + q.size) % len(q.frames)
	q.frames[tail] = frame
	q.size++
	q.mu.Unlock()

	if overflowed {
		q.warnOnce.Do(func() {
			slog.Warn("frame queue full; dropping oldest frames", "capacity", len(q.frames))
		})
	}

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest frame. It blocks until a frame is
// available, ctx is cancelled (returning ctx.Err()), or the queue is closed
// and empty (returning [ErrQueueClosed]).
func (q *FrameQueue) Dequeue(ctx context.Context) (Frame, error) {
	for {
		q.mu.Lock()
		if q.size > 0 {
			f := q.frames[q.head]
			q.frames[q.head] = Frame{}
			q.head = (q.head + 1) % len(q.frames)
			q.size--
			remaining := q.size
			q.mu.Unlock()
			if remaining > 0 {
				// Keep the signal armed for the next waiter.
				select {
				case q.notEmpty <- struct{}{}:
				default:
				}
			}
			return f, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			// Pass the wakeup on so every blocked waiter observes the close.
			select {
			case q.notEmpty <- struct{}{}:
			default:
			}
			return Frame{}, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-q.notEmpty:
		}
	}
}

// Len returns the number of currently buffered frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns the total number of frames dropped due to overflow.
func (q *FrameQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close marks the queue closed. Buffered frames stay dequeueable; once the
// queue drains, Dequeue returns [ErrQueueClosed]. Close is idempotent.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}
