package resilience

import (
	"context"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
)

// TTSFallback implements [tts.Synthesizer] with automatic failover across
// multiple synthesis backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis backend as a fallback.
func (f *TTSFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Synthesize renders text with the first healthy backend. A backend's own
// retry budget runs to exhaustion before the next one is tried.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Clip, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) (tts.Clip, error) {
		return s.Synthesize(ctx, text, voice)
	})
}

// ListVoices returns available voices from the first healthy backend.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) ([]tts.Voice, error) {
		return s.ListVoices(ctx)
	})
}
