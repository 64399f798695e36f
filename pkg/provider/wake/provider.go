// Package wake defines the Engine interface for wake-phrase spotting.
//
// A wake engine watches the continuous microphone stream for a configured
// phrase ("assistant", "hey computer") and reports a detection with a
// confidence score. The central abstraction is Session: a stateful spotter
// that is fed audio frames one at a time and answers, with bounded latency,
// whether the phrase has been heard since the last Reset.
//
// Sessions debounce by design: after a detection is reported, Feed stays
// silent until Reset is called. This keeps the orchestrator from double
// triggering on one utterance while it is busy tearing down the listening
// capture.
package wake

import (
	"context"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
)

// Detection describes one wake-phrase hit.
type Detection struct {
	// Phrase is the configured phrase that was matched.
	Phrase string

	// Confidence is the match score (0.0 to 1.0).
	Confidence float64

	// DetectedAt is when the engine committed to the detection.
	DetectedAt time.Time
}

// Config describes what a Session listens for.
type Config struct {
	// Phrase is the wake phrase to spot. Must be non-empty.
	Phrase string

	// Threshold is the minimum confidence for a detection to be reported.
	// Zero means the engine default.
	Threshold float64
}

// Session is a stateful wake-phrase spotter. Sessions are not safe for
// concurrent use; the session orchestrator feeds frames from a single
// goroutine.
//
// Feed must return quickly regardless of frame content. Engines that need
// expensive analysis run it in the background and surface the outcome on a
// later Feed call.
type Session interface {
	// Feed offers one audio frame to the spotter. It returns a Detection and
	// true when the wake phrase has been recognized and not yet debounced.
	// After a detection is returned, subsequent Feed calls return false until
	// Reset.
	Feed(frame audio.Frame) (Detection, bool)

	// Reset re-arms the spotter and discards buffered audio. Called when the
	// orchestrator returns to listening.
	Reset()

	// Close releases session resources. Feed must not be called after Close.
	Close() error
}

// Engine is the abstraction over any wake-phrase spotting backend.
type Engine interface {
	// Open creates a new spotting session for the given config. The returned
	// Session is armed immediately. The caller owns the Session and must call
	// Close when done.
	Open(ctx context.Context, cfg Config) (Session, error)
}
