package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/internal/history"
)

// stubLister is a scriptable RecentLister.
type stubLister struct {
	records []history.Interaction
	err     error
	limit   int
}

func (s *stubLister) Recent(ctx context.Context, limit int) ([]history.Interaction, error) {
	s.limit = limit
	return s.records, s.err
}

func TestNew_NilStore(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, 5); err == nil {
		t.Fatal("New(nil) did not return an error")
	}
}

func TestSnippet_FormatsRecords(t *testing.T) {
	t.Parallel()

	lister := &stubLister{records: []history.Interaction{
		{
			Command:   "turn on the lights",
			Outcome:   "completed",
			StartedAt: time.Date(2026, 3, 1, 12, 4, 0, 0, time.UTC),
		},
		{
			Command:   "what time is it",
			Outcome:   "failed",
			StartedAt: time.Date(2026, 3, 1, 11, 58, 0, 0, time.UTC),
		},
	}}

	p, err := New(lister, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Snippet(context.Background())
	if err != nil {
		t.Fatalf("Snippet: %v", err)
	}
	if lister.limit != 2 {
		t.Errorf("limit = %d, want 2", lister.limit)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[0], `"turn on the lights"`) || !strings.Contains(lines[0], "completed") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "failed") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestSnippet_EmptyHistory(t *testing.T) {
	t.Parallel()

	p, err := New(&stubLister{}, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Snippet(context.Background())
	if err != nil {
		t.Fatalf("Snippet: %v", err)
	}
	if got != "" {
		t.Fatalf("Snippet = %q, want empty", got)
	}
}

func TestSnippet_StoreError(t *testing.T) {
	t.Parallel()

	p, err := New(&stubLister{err: errors.New("db down")}, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Snippet(context.Background()); err == nil {
		t.Fatal("Snippet did not surface the store error")
	}
}
