// Package mock provides an in-memory mock implementation of the
// [llm.Responder] interface for use in unit tests.
//
// The mock is safe for concurrent use. It records every Generate call so
// that tests can assert on the command and background that reached it.
package mock

import (
	"context"
	"sync"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
)

// GenerateCall records the arguments of a single [Responder.Generate]
// invocation.
type GenerateCall struct {
	// Command is the transcribed command passed to Generate.
	Command string
	// Background is the context string passed to Generate.
	Background string
}

// Responder is a mock implementation of [llm.Responder].
// Set the exported Result/Error fields before use; inspect GenerateCalls
// after.
type Responder struct {
	mu sync.Mutex

	// GenerateResult is returned by Generate when GenerateError is nil and
	// GenerateFunc is unset.
	GenerateResult string

	// GenerateError is returned by Generate.
	GenerateError error

	// GenerateFunc, when set, handles Generate calls entirely, letting a
	// test script different replies per call.
	GenerateFunc func(ctx context.Context, command, background string) (string, error)

	// GenerateCalls records all Generate invocations.
	GenerateCalls []GenerateCall
}

var _ llm.Responder = (*Responder)(nil)

// Generate implements [llm.Responder]. Records the call and returns the
// configured result.
func (r *Responder) Generate(ctx context.Context, command, background string) (string, error) {
	r.mu.Lock()
	r.GenerateCalls = append(r.GenerateCalls, GenerateCall{Command: command, Background: background})
	fn := r.GenerateFunc
	res, err := r.GenerateResult, r.GenerateError
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx, command, background)
	}
	return res, err
}
