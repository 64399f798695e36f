package resilience

import (
	"context"
	"errors"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcription backend as a fallback.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the utterance through the first healthy backend. If the
// primary fails or its breaker is open, subsequent fallbacks are tried with
// the same audio.
func (f *STTFallback) Transcribe(ctx context.Context, pcm []byte) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Result, error) {
		return t.Transcribe(ctx, pcm)
	})
}

// Close releases every registered backend. All backends are closed even when
// some fail; the errors are joined.
func (f *STTFallback) Close() error {
	var errs []error
	for i := range f.group.members {
		if err := f.group.members[i].backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
