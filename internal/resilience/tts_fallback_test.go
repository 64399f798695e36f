package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
	ttsmock "github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts/mock"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Synthesizer{
		SynthesizeResult: tts.Clip{PCM: []byte{1, 2}, SampleRate: 24000, Channels: 1},
	}
	secondary := &ttsmock.Synthesizer{}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	clip, err := fb.Synthesize(context.Background(), "hello", tts.Voice{ID: "af_heart"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clip.PCM) != 2 {
		t.Fatalf("len(PCM) = %d, want 2", len(clip.PCM))
	}
	if len(secondary.SynthesizeCalls) != 0 {
		t.Fatalf("secondary was called %d times, want 0", len(secondary.SynthesizeCalls))
	}
}

func TestTTSFallback_PrimaryFailFallbackSuccess(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeError: errTest}
	secondary := &ttsmock.Synthesizer{
		SynthesizeResult: tts.Clip{PCM: []byte{3, 4}, SampleRate: 24000, Channels: 1},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	clip, err := fb.Synthesize(context.Background(), "hello", tts.Voice{ID: "af_heart"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clip.PCM) != 2 {
		t.Fatalf("len(PCM) = %d, want 2", len(clip.PCM))
	}
	if len(secondary.SynthesizeCalls) != 1 {
		t.Fatalf("secondary was called %d times, want 1", len(secondary.SynthesizeCalls))
	}
	if got := secondary.SynthesizeCalls[0]; got.Text != "hello" || got.Voice.ID != "af_heart" {
		t.Fatalf("secondary got (%q, %q), want (hello, af_heart)", got.Text, got.Voice.ID)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeError: errTest}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := fb.Synthesize(context.Background(), "hello", tts.Voice{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTTSFallback_ListVoices(t *testing.T) {
	primary := &ttsmock.Synthesizer{ListVoicesError: errTest}
	secondary := &ttsmock.Synthesizer{
		ListVoicesResult: []tts.Voice{{ID: "af_heart"}, {ID: "am_adam"}},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	voices, err := fb.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("len(voices) = %d, want 2", len(voices))
	}
	if secondary.CallCountListVoices != 1 {
		t.Fatalf("secondary ListVoices called %d times, want 1", secondary.CallCountListVoices)
	}
}
