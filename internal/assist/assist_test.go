package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// stubProvider is a scriptable Provider for testing.
type stubProvider struct {
	name    string
	snippet string
	err     error
	delay   time.Duration
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Snippet(ctx context.Context) (string, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.snippet, p.err
}

func TestAssemble_JoinsInRegistrationOrder(t *testing.T) {
	t.Parallel()

	a := NewAssembler([]Provider{
		&stubProvider{name: "prayer times", snippet: "Fajr 04:32, Dhuhr 12:10"},
		&stubProvider{name: "tasks", snippet: "- buy groceries\n- call dentist"},
	})

	got := a.Assemble(context.Background())
	want := "prayer times:\nFajr 04:32, Dhuhr 12:10\n\ntasks:\n- buy groceries\n- call dentist"
	if got != want {
		t.Fatalf("Assemble = %q, want %q", got, want)
	}
}

func TestAssemble_OmitsFailingProvider(t *testing.T) {
	t.Parallel()

	a := NewAssembler([]Provider{
		&stubProvider{name: "tasks", err: errors.New("server down")},
		&stubProvider{name: "activity", snippet: "last command: hello"},
	})

	got := a.Assemble(context.Background())
	if strings.Contains(got, "tasks") {
		t.Errorf("failed provider appears in output: %q", got)
	}
	if !strings.Contains(got, "last command: hello") {
		t.Errorf("healthy provider missing from output: %q", got)
	}
}

func TestAssemble_OmitsEmptySnippets(t *testing.T) {
	t.Parallel()

	a := NewAssembler([]Provider{
		&stubProvider{name: "tasks", snippet: "   "},
		&stubProvider{name: "activity", snippet: "last command: hello"},
	})

	got := a.Assemble(context.Background())
	if strings.Contains(got, "tasks") {
		t.Errorf("empty provider appears in output: %q", got)
	}
}

func TestAssemble_TimeoutBoundsSlowProvider(t *testing.T) {
	t.Parallel()

	a := NewAssembler([]Provider{
		&stubProvider{name: "slow", snippet: "too late", delay: time.Minute},
		&stubProvider{name: "fast", snippet: "on time"},
	}, WithSnippetTimeout(50*time.Millisecond))

	start := time.Now()
	got := a.Assemble(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Assemble took %v, want bounded by snippet timeout", elapsed)
	}
	if strings.Contains(got, "too late") {
		t.Errorf("timed-out provider appears in output: %q", got)
	}
	if !strings.Contains(got, "on time") {
		t.Errorf("fast provider missing from output: %q", got)
	}
}

func TestAssemble_NoProviders(t *testing.T) {
	t.Parallel()

	if got := NewAssembler(nil).Assemble(context.Background()); got != "" {
		t.Fatalf("Assemble with no providers = %q, want empty", got)
	}
}
