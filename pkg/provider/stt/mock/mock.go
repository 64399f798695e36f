// Package mock provides an in-memory mock implementation of the
// [stt.Transcriber] interface for use in unit tests.
//
// The mock is safe for concurrent use. It records every Transcribe call so
// that tests can assert on call counts and submitted audio, and it exposes
// exported fields controlling return values.
//
// Typical usage:
//
//	tr := &mock.Transcriber{
//	    TranscribeResult: stt.Result{Text: "turn off the lights", Confidence: 0.9},
//	}
//	res, err := tr.Transcribe(ctx, pcm)
package mock

import (
	"context"
	"sync"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
)

// TranscribeCall records the arguments of a single [Transcriber.Transcribe]
// invocation.
type TranscribeCall struct {
	// PCM is the audio buffer passed to Transcribe.
	PCM []byte
}

// Transcriber is a mock implementation of [stt.Transcriber].
// Set the exported Result/Error fields before use; inspect the call records
// after.
type Transcriber struct {
	mu sync.Mutex

	// TranscribeResult is returned by Transcribe when TranscribeError is nil
	// and TranscribeFunc is unset.
	TranscribeResult stt.Result

	// TranscribeError is returned by Transcribe.
	TranscribeError error

	// TranscribeFunc, when set, handles Transcribe calls entirely, letting a
	// test script different results per call. It overrides TranscribeResult
	// and TranscribeError.
	TranscribeFunc func(ctx context.Context, pcm []byte) (stt.Result, error)

	// CloseError is returned by Close.
	CloseError error

	// TranscribeCalls records all Transcribe invocations.
	TranscribeCalls []TranscribeCall

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements [stt.Transcriber]. Records the call and returns the
// configured result.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (stt.Result, error) {
	t.mu.Lock()
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{PCM: pcm})
	fn := t.TranscribeFunc
	res, err := t.TranscribeResult, t.TranscribeError
	t.mu.Unlock()
	if fn != nil {
		return fn(ctx, pcm)
	}
	return res, err
}

// Close implements [stt.Transcriber]. Records the call and returns CloseError.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountClose++
	return t.CloseError
}
