// Package wsmic provides an audio source and playback sink backed by a
// microphone bridge client over WebSocket.
//
// The bridge client is a thin capture program running next to the audio
// hardware: it streams 20 ms Opus frames of 48 kHz mono microphone audio as
// binary messages and accepts Opus frames for speaker playback in the other
// direction. Control messages (start, stop) travel as JSON text messages.
//
// Bridge implements both [audio.Source] (decoding and repacking the mic
// stream into 16 kHz mono 50 ms frames with sequence numbers) and
// [tts.Player] (encoding synthesized clips back to the bridge, paced at
// real time). A lost or erroring bridge connection surfaces as
// [audio.ErrDeviceFailed] rather than silence.
//
// Bridge methods are intended for a single caller goroutine, mirroring the
// single-writer discipline of the session core.
package wsmic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
)

// The bridge client captures and plays 48 kHz mono Opus at 20 ms frame size.
const (
	bridgeSampleRate   = 48000
	bridgeChannels     = 1
	bridgeFrameMs      = 20
	bridgeFrameSamples = bridgeSampleRate * bridgeFrameMs / 1000 // 960

	// queueFrames bounds the capture hand-off at one second of audio. A
	// consumer that stalls longer than that loses the oldest frames instead
	// of backing pressure into the websocket read loop.
	queueFrames = 20

	defaultDialTimeout = 5 * time.Second
)

// controlMessage is the JSON text frame exchanged with the bridge client.
type controlMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Option is a functional option for configuring a Bridge.
type Option func(*Bridge)

// WithDialTimeout bounds the WebSocket dial to the bridge client.
// Defaults to 5 s.
func WithDialTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.dialTimeout = d }
}

// WithDropHook registers fn to receive the number of frames dropped by a
// capture session's overflow queue, reported when the session ends. Nothing
// is reported for sessions that dropped no frames.
func WithDropHook(fn func(dropped uint64)) Option {
	return func(b *Bridge) { b.dropHook = fn }
}

// Compile-time interface assertions.
var (
	_ audio.Source = (*Bridge)(nil)
	_ tts.Player   = (*Bridge)(nil)
)

// Bridge is a connection to the microphone bridge client. The connection is
// dialed lazily on first use and re-dialed after a failure, so a restarted
// bridge client only costs one failed operation.
type Bridge struct {
	url         string
	dialTimeout time.Duration
	dropHook    func(dropped uint64)

	mu        sync.Mutex
	conn      *websocket.Conn
	capturing bool
	lastErr   error
	seq       uint64

	pumpCancel context.CancelFunc
	pumpDone   chan struct{}

	enc *gopus.Encoder
}

// New creates a Bridge that connects to the bridge client's WebSocket
// endpoint at url (e.g., "ws://localhost:8765"). url must be non-empty.
// No connection is established until Start or Play.
func New(url string, opts ...Option) (*Bridge, error) {
	if url == "" {
		return nil, errors.New("wsmic: url must not be empty")
	}
	b := &Bridge{
		url:         url,
		dialTimeout: defaultDialTimeout,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Start implements [audio.Source]. It connects to the bridge client, asks it
// to open the microphone, and returns the channel of decoded 16 kHz mono
// frames. The channel is closed when capture stops, whether by Stop or by a
// device failure (inspect Err to tell them apart).
func (b *Bridge) Start(ctx context.Context) (<-chan audio.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capturing {
		return nil, errors.New("wsmic: capture already running")
	}

	conn, err := b.ensureConnLocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.writeControlLocked(ctx, conn, "start"); err != nil {
		return nil, err
	}

	frames := make(chan audio.Frame)
	queue := audio.NewFrameQueue(queueFrames)
	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	pumpExit := make(chan struct{})

	b.capturing = true
	b.lastErr = nil
	b.pumpCancel = cancel
	b.pumpDone = done

	// The read pump enqueues without ever blocking; the forwarder hands
	// frames to the consumer at its own pace, losing the oldest on overflow.
	go func() {
		b.readPump(pumpCtx, conn, queue)
		queue.Close()
		close(pumpExit)
	}()
	go func() {
		b.forward(pumpCtx, queue, frames)
		<-pumpExit
		if dropped := queue.Dropped(); dropped > 0 && b.dropHook != nil {
			b.dropHook(dropped)
		}
		close(done)
	}()

	return frames, nil
}

// Stop implements [audio.Source]. It asks the bridge client to close the
// microphone and waits for the frame channel to drain and close. Cancelling
// the read pump tears down the WebSocket, so the next Start or Play dials a
// fresh connection.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.capturing {
		b.mu.Unlock()
		return nil
	}
	b.capturing = false
	conn := b.conn
	cancel := b.pumpCancel
	done := b.pumpDone
	b.mu.Unlock()

	if conn != nil {
		ctx, ctxCancel := context.WithTimeout(context.Background(), time.Second)
		if err := conn.Write(ctx, websocket.MessageText, mustControl("stop")); err != nil {
			slog.Debug("wsmic: stop control write failed", "error", err)
		}
		ctxCancel()
	}
	cancel()
	<-done

	b.mu.Lock()
	if b.conn == conn && conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "capture stopped")
		b.conn = nil
	}
	b.mu.Unlock()
	return nil
}

// Err implements [audio.Source]. It reports why the last capture ended, or
// nil after a clean Stop.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Play implements [tts.Player]. It downmixes and resamples the clip to the
// bridge format, Opus-encodes it in 20 ms frames, and writes them paced at
// real time so the client's jitter buffer stays shallow. Cancelling ctx
// aborts playback promptly. Play must not overlap a running capture on the
// same Bridge.
func (b *Bridge) Play(ctx context.Context, clip tts.Clip) error {
	if len(clip.PCM) == 0 {
		return nil
	}
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return errors.New("wsmic: clip has invalid format")
	}

	b.mu.Lock()
	conn, err := b.ensureConnLocked(ctx)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if b.enc == nil {
		enc, encErr := gopus.NewEncoder(bridgeSampleRate, bridgeChannels, gopus.Audio)
		if encErr != nil {
			b.mu.Unlock()
			return fmt.Errorf("wsmic: create opus encoder: %w", encErr)
		}
		b.enc = enc
	}
	enc := b.enc
	b.mu.Unlock()

	pcm := clip.PCM
	if clip.Channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}
	pcm = audio.ResampleMono16(pcm, clip.SampleRate, bridgeSampleRate)
	samples := audio.BytesToInt16s(pcm)

	ticker := time.NewTicker(bridgeFrameMs * time.Millisecond)
	defer ticker.Stop()

	for off := 0; off < len(samples); off += bridgeFrameSamples {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+bridgeFrameSamples, len(samples))
		frame := samples[off:end]
		if len(frame) < bridgeFrameSamples {
			padded := make([]int16, bridgeFrameSamples)
			copy(padded, frame)
			frame = padded
		}

		packet, err := enc.Encode(frame, bridgeFrameSamples, len(frame)*2)
		if err != nil {
			return fmt.Errorf("wsmic: opus encode: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, packet); err != nil {
			b.markConnDead(conn)
			return fmt.Errorf("wsmic: write playback frame: %w", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close tears down the bridge connection. Any running capture ends as if
// Stop had been called.
func (b *Bridge) Close() error {
	b.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		err := b.conn.Close(websocket.StatusNormalClosure, "bridge closed")
		b.conn = nil
		return err
	}
	return nil
}

// ---- internals --------------------------------------------------------------

// ensureConnLocked returns the live connection, dialing a fresh one when
// none exists. Callers must hold b.mu.
func (b *Bridge) ensureConnLocked(ctx context.Context) (*websocket.Conn, error) {
	if b.conn != nil {
		return b.conn, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, b.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial bridge: %w", audio.ErrDeviceFailed, err)
	}
	b.conn = conn
	return conn, nil
}

// writeControlLocked sends a JSON control message. Callers must hold b.mu.
func (b *Bridge) writeControlLocked(ctx context.Context, conn *websocket.Conn, typ string) error {
	if err := conn.Write(ctx, websocket.MessageText, mustControl(typ)); err != nil {
		b.conn = nil
		return fmt.Errorf("%w: send %s: %w", audio.ErrDeviceFailed, typ, err)
	}
	return nil
}

// markConnDead drops the cached connection so the next operation re-dials.
func (b *Bridge) markConnDead(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		_ = conn.Close(websocket.StatusInternalError, "connection failed")
		b.conn = nil
	}
	b.mu.Unlock()
}

// forward drains the overflow queue into the consumer channel. It owns the
// frames channel and closes it on exit, after the queue is closed and
// drained or ctx is cancelled.
func (b *Bridge) forward(ctx context.Context, queue *audio.FrameQueue, frames chan<- audio.Frame) {
	defer close(frames)
	for {
		f, err := queue.Dequeue(ctx)
		if err != nil {
			return
		}
		select {
		case frames <- f:
		case <-ctx.Done():
			return
		}
	}
}

// readPump decodes incoming Opus frames, resamples them to 16 kHz mono, and
// repacks the stream into fixed 50 ms frames pushed onto the overflow queue.
// Enqueue never blocks, so the websocket read loop keeps up with the bridge
// regardless of consumer pace.
func (b *Bridge) readPump(ctx context.Context, conn *websocket.Conn, queue *audio.FrameQueue) {
	dec, err := gopus.NewDecoder(bridgeSampleRate, bridgeChannels)
	if err != nil {
		b.failCapture(fmt.Errorf("%w: create opus decoder: %w", audio.ErrDeviceFailed, err), conn)
		return
	}

	var pending []byte // accumulated 16 kHz mono PCM awaiting framing

	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Clean stop.
				return
			}
			b.failCapture(fmt.Errorf("%w: read mic stream: %w", audio.ErrDeviceFailed, err), conn)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			samples, err := dec.Decode(msg, bridgeFrameSamples, false)
			if err != nil {
				slog.Warn("wsmic: dropping undecodable mic frame", "error", err)
				continue
			}
			pcm := audio.ResampleMono16(audio.Int16sToBytes(samples), bridgeSampleRate, audio.SampleRate)
			pending = append(pending, pcm...)

			for len(pending) >= audio.FrameBytes {
				data := make([]byte, audio.FrameBytes)
				copy(data, pending[:audio.FrameBytes])
				pending = pending[audio.FrameBytes:]

				b.mu.Lock()
				b.seq++
				seq := b.seq
				b.mu.Unlock()

				queue.Enqueue(audio.Frame{Data: data, Seq: seq, CapturedAt: time.Now()})
			}

		case websocket.MessageText:
			var ctl controlMessage
			if err := json.Unmarshal(msg, &ctl); err != nil {
				continue
			}
			if ctl.Type == "error" {
				b.failCapture(fmt.Errorf("%w: bridge reported: %s", audio.ErrDeviceFailed, ctl.Message), conn)
				return
			}
		}
	}
}

// failCapture records a device failure and ends the capture session.
func (b *Bridge) failCapture(err error, conn *websocket.Conn) {
	slog.Error("wsmic: capture failed", "error", err)
	b.mu.Lock()
	b.lastErr = err
	b.capturing = false
	if b.conn == conn {
		_ = conn.Close(websocket.StatusInternalError, "capture failed")
		b.conn = nil
	}
	b.mu.Unlock()
}

// mustControl marshals a control message; the message shape cannot fail to
// encode.
func mustControl(typ string) []byte {
	data, _ := json.Marshal(controlMessage{Type: typ})
	return data
}
