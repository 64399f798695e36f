package resilience

import (
	"context"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
)

// LLMFallback implements [llm.Responder] with automatic failover across
// multiple language-model backends. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback is
// tried with the same command.
type LLMFallback struct {
	group *FallbackGroup[llm.Responder]
}

// Compile-time interface assertion.
var _ llm.Responder = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Responder, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional responder as a fallback.
func (f *LLMFallback) AddFallback(name string, r llm.Responder) {
	f.group.AddFallback(name, r)
}

// Generate asks the first healthy backend for a reply to the command.
func (f *LLMFallback) Generate(ctx context.Context, command, background string) (string, error) {
	return ExecuteWithResult(f.group, func(r llm.Responder) (string, error) {
		return r.Generate(ctx, command, background)
	})
}
