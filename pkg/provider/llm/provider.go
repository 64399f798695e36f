// Package llm defines the Responder interface for response generation.
//
// The session core treats response generation as an opaque boundary: a
// transcribed command plus assembled background context goes in, spoken-ready
// text comes out. Prompting strategy, model choice, and conversation
// management are implementation concerns.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Responder is the abstraction over any response-generation backend.
//
// Generate produces the assistant's reply to a transcribed voice command.
// background carries the assembled context snippets ("" when none are
// available); how the backend weaves it into its prompt is up to the
// implementation. The returned text should read naturally when spoken aloud.
type Responder interface {
	Generate(ctx context.Context, command, background string) (string, error)
}
