package prayer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const timetableJSON = `{
	"code": 200,
	"status": "OK",
	"data": {
		"timings": {
			"Fajr": "04:32",
			"Sunrise": "06:01",
			"Dhuhr": "12:10",
			"Asr": "15:30",
			"Maghrib": "18:20",
			"Isha": "19:45"
		}
	}
}`

func TestNew_RequiresLocation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{City: "Amman"}); err == nil {
		t.Fatal("New without country did not return an error")
	}
	if _, err := New(Config{Country: "Jordan"}); err == nil {
		t.Fatal("New without city did not return an error")
	}
}

func TestSnippet_FormatsDailyPrayers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/timingsByCity" {
			t.Errorf("path = %q, want /v1/timingsByCity", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("city") != "Amman" || q.Get("country") != "Jordan" {
			t.Errorf("query = %v", q)
		}
		if q.Get("method") != "4" {
			t.Errorf("method = %q, want 4", q.Get("method"))
		}
		w.Write([]byte(timetableJSON))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, City: "Amman", Country: "Jordan", Method: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Snippet(context.Background())
	if err != nil {
		t.Fatalf("Snippet: %v", err)
	}
	want := "Fajr 04:32, Dhuhr 12:10, Asr 15:30, Maghrib 18:20, Isha 19:45"
	if got != want {
		t.Fatalf("Snippet = %q, want %q", got, want)
	}
}

func TestSnippet_CachesForTheDay(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(timetableJSON))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, City: "Amman", Country: "Jordan"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for range 3 {
		if _, err := p.Snippet(context.Background()); err != nil {
			t.Fatalf("Snippet: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("API called %d times, want 1", got)
	}
}

func TestSnippet_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, City: "Amman", Country: "Jordan"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Snippet(context.Background()); err == nil {
		t.Fatal("Snippet did not return an error for a failing API")
	}
}

func TestSnippet_EmptyTimings(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"timings":{}}}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, City: "Amman", Country: "Jordan"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Snippet(context.Background()); err == nil {
		t.Fatal("Snippet did not return an error for empty timings")
	}
}
