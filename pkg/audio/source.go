// Package audio defines the capture-side audio types and contracts for the
// voice pipeline: the [Frame] transport unit, the [Source] capture contract,
// the bounded [FrameQueue] that decouples the real-time capture path from the
// processing loop, and PCM format-conversion helpers.
//
// A [Source] has exactly one consumer at a time. Enforcing that exclusivity is
// the job of the session orchestrator, not of Source implementations — a
// Source only promises in-order delivery and fail-fast device errors.
package audio

import (
	"context"
	"errors"
)

// ErrDeviceFailed is returned (wrapped) by Source implementations when the
// underlying capture device is lost. The source stops delivering frames
// rather than emitting empty or garbage data.
var ErrDeviceFailed = errors.New("audio: capture device failed")

// ErrSourceClosed is returned when Start is called on a source that has been
// stopped permanently.
var ErrSourceClosed = errors.New("audio: source closed")

// Source is a continuous capture device producing [Frame] values at a fixed
// cadence.
//
// Frames are delivered in capture order on the returned channel. The channel
// is closed when the source stops — either because Stop was called, the
// context was cancelled, or the device failed. After the channel closes, Err
// reports the cause: nil for a clean stop, a wrapped [ErrDeviceFailed]
// otherwise.
//
// Implementations must not block the capture path on a slow consumer; the
// caller is expected to drain the channel promptly (normally into a
// [FrameQueue]).
type Source interface {
	// Start begins capture and returns the frame stream. Calling Start while
	// the source is already running is a programming error and returns an
	// error; arbitration between multiple logical consumers happens above
	// this contract.
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop ends capture and releases the device. The frame channel returned
	// by Start is closed before Stop returns. Stop is idempotent.
	Stop() error

	// Err reports why the frame stream ended. Valid after the channel from
	// Start has closed; nil means a clean stop.
	Err() error
}
