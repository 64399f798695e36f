package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed reports that every backend in a [FallbackGroup] either failed
// or was skipped because its circuit breaker is open.
var ErrAllFailed = errors.New("all configured backends failed")

// FallbackConfig carries the circuit-breaker tuning applied to every backend
// registered in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// member pairs one backend with the breaker guarding it.
type member[T any] struct {
	name    string
	backend T
	breaker *CircuitBreaker
}

// FallbackGroup orders a primary backend and its fallbacks for one pipeline
// stage, such as transcription, synthesis, or reply generation. Calls go to
// the first member whose breaker admits them, so a tripped primary is
// bypassed until its breaker lets probes through again.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the preferred
// backend. Secondary backends are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback appends a secondary backend. Fallbacks are consulted in
// registration order, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, backend T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.members = append(fg.members, member[T]{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each member in order until one succeeds.
// Open-breaker members are skipped. Returns [ErrAllFailed] wrapped with the
// last error when no member succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(backend T) (struct{}, error) {
		return struct{}{}, fn(backend)
	})
	return err
}

// ExecuteWithResult tries fn against each member until one succeeds and
// returns its result. It is a package-level function because Go does not
// support method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.members {
		m := &fg.members[i]
		var result R
		err := m.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(m.backend)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend with open breaker", "backend", m.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", m.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
