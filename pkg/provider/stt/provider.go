// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber wraps a recognition engine (a local Vosk server, an in-process
// whisper.cpp model) behind a uniform one-shot interface: hand it a complete
// PCM utterance, get text back. Streaming recognition is deliberately out of
// scope; utterance boundaries are decided upstream by the voice-activity
// detector, so by the time audio reaches a Transcriber it is already a
// self-contained command.
//
// Implementations must be safe for concurrent use and must bound every
// Transcribe call with an internal timeout so that a stuck engine cannot
// stall the session pipeline.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrTranscriberClosed is returned by Transcribe after Close.
var ErrTranscriberClosed = errors.New("stt: transcriber is closed")

// Result is the outcome of transcribing one utterance. An empty Text with a
// nil error is a valid result: the engine heard the audio and found no speech
// in it.
type Result struct {
	// Text is the recognized speech content, trimmed of surrounding whitespace.
	Text string

	// Confidence is the overall confidence score (0.0 to 1.0). Zero when the
	// engine does not report confidence.
	Confidence float64

	// Words contains per-word detail when the engine supports it. Nil otherwise.
	Words []WordDetail
}

// WordDetail holds per-word metadata from engines that report it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Transcriber is the abstraction over any speech-to-text engine.
//
// Transcribe converts one complete utterance of 16-bit little-endian mono PCM
// into text. The pcm slice must not be mutated by the implementation. The call
// blocks until recognition completes, the internal timeout fires, or ctx is
// cancelled, whichever comes first.
//
// Close releases engine resources. Transcribe calls made after Close return
// [ErrTranscriberClosed]. Close is idempotent.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (Result, error)
	Close() error
}
