// Package assist gathers background context for the language model.
//
// A [Provider] contributes one short text snippet (today's prayer times, the
// open task list, recent activity). The [Assembler] fans out to all providers
// concurrently, bounds each with its own timeout, and joins whatever arrived
// in registration order. A provider that fails or runs late is simply
// omitted: context enrichment must never delay or break command processing.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultSnippetTimeout bounds each provider's Snippet call.
const defaultSnippetTimeout = 2 * time.Second

// Provider contributes one context snippet for the response generator.
type Provider interface {
	// Name identifies the provider in logs and snippet headers.
	Name() string

	// Snippet returns a short plain-text context fragment. An empty string
	// with a nil error means the provider has nothing to contribute right
	// now.
	Snippet(ctx context.Context) (string, error)
}

// Option is a functional option for configuring an Assembler.
type Option func(*Assembler)

// WithSnippetTimeout overrides the per-provider timeout. Defaults to 2 s.
func WithSnippetTimeout(d time.Duration) Option {
	return func(a *Assembler) { a.timeout = d }
}

// Assembler collects snippets from a fixed set of providers.
// It is safe for concurrent use.
type Assembler struct {
	providers []Provider
	timeout   time.Duration
}

// NewAssembler creates an [Assembler] over the given providers. Snippets are
// joined in the order providers are listed here.
func NewAssembler(providers []Provider, opts ...Option) *Assembler {
	a := &Assembler{
		providers: providers,
		timeout:   defaultSnippetTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble queries every provider concurrently and returns the joined
// snippets, each under a "name:" header, in registration order. Provider
// failures and timeouts are logged and omitted; Assemble itself never fails.
func (a *Assembler) Assemble(ctx context.Context) string {
	if len(a.providers) == 0 {
		return ""
	}

	snippets := make([]string, len(a.providers))
	var g errgroup.Group

	for i, p := range a.providers {
		g.Go(func() error {
			snippetCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			text, err := p.Snippet(snippetCtx)
			if err != nil {
				slog.Warn("context provider failed",
					"provider", p.Name(),
					"elapsed", time.Since(start),
					"error", err)
				return nil
			}
			snippets[i] = strings.TrimSpace(text)
			return nil
		})
	}
	// Provider errors are swallowed above, so Wait cannot fail.
	_ = g.Wait()

	var sb strings.Builder
	for i, p := range a.providers {
		if snippets[i] == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s:\n%s", p.Name(), snippets[i])
	}
	return sb.String()
}
