// Package mock provides in-memory mock implementations of the
// [tts.Synthesizer] and [tts.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields controlling return values.
package mock

import (
	"context"
	"sync"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
)

// SynthesizeCall records the arguments of a single [Synthesizer.Synthesize]
// invocation.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the voice passed to Synthesize.
	Voice tts.Voice
}

// Synthesizer is a mock implementation of [tts.Synthesizer].
type Synthesizer struct {
	mu sync.Mutex

	// SynthesizeResult is returned by Synthesize when SynthesizeError is nil.
	SynthesizeResult tts.Clip

	// SynthesizeError is returned by Synthesize.
	SynthesizeError error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.Voice

	// ListVoicesError is returned by ListVoices.
	ListVoicesError error

	// SynthesizeCalls records all Synthesize invocations.
	SynthesizeCalls []SynthesizeCall

	// CallCountListVoices records how many times ListVoices was called.
	CallCountListVoices int
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesize implements [tts.Synthesizer]. Records the call and returns the
// configured result.
func (s *Synthesizer) Synthesize(_ context.Context, text string, voice tts.Voice) (tts.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	return s.SynthesizeResult, s.SynthesizeError
}

// ListVoices implements [tts.Synthesizer].
func (s *Synthesizer) ListVoices(_ context.Context) ([]tts.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountListVoices++
	return s.ListVoicesResult, s.ListVoicesError
}

// PlayCall records the arguments of a single [Player.Play] invocation.
type PlayCall struct {
	// Clip is the clip passed to Play.
	Clip tts.Clip
}

// Player is a mock implementation of [tts.Player].
type Player struct {
	mu sync.Mutex

	// PlayError is returned by Play when PlayFunc is unset.
	PlayError error

	// PlayFunc, when set, handles Play calls entirely. Use it to block until
	// a test-controlled signal to exercise cancellation paths.
	PlayFunc func(ctx context.Context, clip tts.Clip) error

	// PlayCalls records all Play invocations.
	PlayCalls []PlayCall
}

var _ tts.Player = (*Player)(nil)

// Play implements [tts.Player]. Records the call and returns the configured
// result. When PlayFunc is unset, Play honours ctx cancellation before
// returning PlayError.
func (p *Player) Play(ctx context.Context, clip tts.Clip) error {
	p.mu.Lock()
	p.PlayCalls = append(p.PlayCalls, PlayCall{Clip: clip})
	fn := p.PlayFunc
	errResult := p.PlayError
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, clip)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errResult
}
