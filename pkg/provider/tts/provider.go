// Package tts defines the Synthesizer and Player interfaces for spoken
// responses.
//
// Synthesis and playback are separate concerns: a Synthesizer turns text
// into a PCM clip (usually over the network, with its own timeout and retry
// policy), while a Player pushes a clip to the audio output device. The
// session orchestrator composes them and never assumes they share a backend.
package tts

import (
	"context"
	"time"
)

// Clip is one synthesized utterance of 16-bit little-endian signed PCM.
type Clip struct {
	// PCM is the raw audio data.
	PCM []byte

	// SampleRate is the clip's sample rate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels. 1 = mono.
	Channels int
}

// Duration returns the playback length of the clip, or zero for clips with
// an invalid format.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.PCM) / 2 / c.Channels
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Voice identifies a synthesis voice.
type Voice struct {
	// ID is the provider-specific voice identifier (e.g., "af_heart").
	ID string

	// Name is a human-readable label. May equal ID.
	Name string
}

// Synthesizer is the abstraction over any text-to-speech backend.
//
// Implementations must bound every Synthesize call with an internal timeout
// and may retry transient failures; by the time an error reaches the caller
// the attempt budget is spent.
type Synthesizer interface {
	// Synthesize converts text to a PCM clip using the given voice. A zero
	// Voice selects the backend default.
	Synthesize(ctx context.Context, text string, voice Voice) (Clip, error)

	// ListVoices returns the voices the backend offers.
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Player pushes synthesized audio to the output device.
//
// Play blocks until the clip has fully played, playback fails, or ctx is
// cancelled. It always returns: a cancelled playback returns ctx.Err()
// promptly rather than waiting for the device to drain.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}
