// Package whisper provides an in-process transcriber backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across calls. Each
// Transcribe call creates its own whisper context, so concurrent calls do
// not interfere.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithTimeout sets the upper bound on a single Transcribe call. Defaults
// to 30 s, generous enough for a maximum-length utterance on CPU.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) { t.timeout = d }
}

// Transcriber implements stt.Transcriber using whisper.cpp Go bindings
// (CGO), with no network hop at all.
type Transcriber struct {
	model    whisperlib.Model
	language string
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
		timeout:  defaultTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe runs whisper.cpp inference on one complete utterance of 16-bit
// little-endian mono PCM at 16 kHz (the only rate whisper.cpp accepts).
//
// Inference runs in a separate goroutine so that ctx cancellation and the
// internal timeout unblock the caller; the whisper.cpp C call itself cannot
// be interrupted, so a timed-out inference finishes in the background and
// its result is discarded.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (stt.Result, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return stt.Result{}, stt.ErrTranscriberClosed
	}
	if len(pcm) == 0 {
		return stt.Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type inference struct {
		text string
		err  error
	}
	done := make(chan inference, 1)
	go func() {
		text, err := t.infer(pcm)
		done <- inference{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return stt.Result{}, fmt.Errorf("whisper: transcription aborted: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return stt.Result{}, res.err
		}
		return stt.Result{Text: res.text}, nil
	}
}

// Close releases the whisper model. Calling Close more than once is safe.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// infer converts the PCM audio to float32, runs whisper.cpp inference using
// a fresh context, and returns the concatenated segment text. Each whisper
// context is NOT thread-safe, but the model can be shared across goroutines.
func (t *Transcriber) infer(pcm []byte) (string, error) {
	samples := pcmToFloat32(pcm)

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", t.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
