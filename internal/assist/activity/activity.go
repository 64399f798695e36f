// Package activity provides an [assist.Provider] summarising the user's
// recent interactions from the history store.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/baraagh52-hue/Assistan-Trae/internal/assist"
	"github.com/baraagh52-hue/Assistan-Trae/internal/history"
)

// defaultLimit is how many interactions the snippet covers.
const defaultLimit = 5

// RecentLister is the slice of the history store this provider needs.
// *history.Store satisfies it.
type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]history.Interaction, error)
}

// Provider is an [assist.Provider] over recent interaction records.
type Provider struct {
	store RecentLister
	limit int
}

// Compile-time interface assertion.
var _ assist.Provider = (*Provider)(nil)

// New creates a Provider reading up to limit records per snippet; limit <= 0
// uses the default of 5.
func New(store RecentLister, limit int) (*Provider, error) {
	if store == nil {
		return nil, errors.New("activity: store must not be nil")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Provider{store: store, limit: limit}, nil
}

// Name implements [assist.Provider].
func (p *Provider) Name() string { return "recent activity" }

// Snippet implements [assist.Provider]. It renders the latest commands as a
// short list, newest first. No history yet is not an error, just an empty
// snippet.
func (p *Provider) Snippet(ctx context.Context) (string, error) {
	records, err := p.store.Recent(ctx, p.limit)
	if err != nil {
		return "", fmt.Errorf("activity: read history: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, r := range records {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- %s (%s): %q", r.StartedAt.Format("Jan 2 15:04"), r.Outcome, r.Command)
	}
	return sb.String(), nil
}
