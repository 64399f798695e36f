// Package prayer provides an [assist.Provider] that reports today's prayer
// times from an Aladhan-compatible timetable API.
package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/internal/assist"
)

const (
	defaultBaseURL = "https://api.aladhan.com"
	timingsPath    = "/v1/timingsByCity"
)

// prayerOrder is the presentation order of the five daily prayers.
var prayerOrder = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Config locates the user for the timetable lookup.
type Config struct {
	// BaseURL overrides the API endpoint; default https://api.aladhan.com.
	BaseURL string

	// City and Country are required.
	City    string
	Country string

	// Method is the calculation method ID; 0 uses the API default.
	Method int
}

// Provider is an [assist.Provider] backed by the timetable API. Timings only
// change once a day, so the last successful response is cached until the
// date rolls over.
type Provider struct {
	baseURL string
	cfg     Config
	httpc   *http.Client

	mu         sync.Mutex
	cachedDay  string
	cachedText string
}

// Compile-time interface assertion.
var _ assist.Provider = (*Provider)(nil)

// New creates a Provider. City and Country must be non-empty.
func New(cfg Config) (*Provider, error) {
	if cfg.City == "" || cfg.Country == "" {
		return nil, errors.New("prayer: city and country are required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		httpc:   &http.Client{},
	}, nil
}

// Name implements [assist.Provider].
func (p *Provider) Name() string { return "prayer times" }

// Snippet implements [assist.Provider].
func (p *Provider) Snippet(ctx context.Context) (string, error) {
	today := time.Now().Format("2006-01-02")

	p.mu.Lock()
	if p.cachedDay == today {
		text := p.cachedText
		p.mu.Unlock()
		return text, nil
	}
	p.mu.Unlock()

	timings, err := p.fetchTimings(ctx)
	if err != nil {
		return "", err
	}
	text := formatTimings(timings)

	p.mu.Lock()
	p.cachedDay = today
	p.cachedText = text
	p.mu.Unlock()

	return text, nil
}

// timingsResponse mirrors the API reply; only the timings map is consumed.
type timingsResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

func (p *Provider) fetchTimings(ctx context.Context) (map[string]string, error) {
	q := url.Values{}
	q.Set("city", p.cfg.City)
	q.Set("country", p.cfg.Country)
	if p.cfg.Method > 0 {
		q.Set("method", strconv.Itoa(p.cfg.Method))
	}
	reqURL := p.baseURL + timingsPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("prayer: build request: %w", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prayer: fetch timetable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prayer: timetable API returned %s", resp.Status)
	}

	var body timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("prayer: decode timetable: %w", err)
	}
	if len(body.Data.Timings) == 0 {
		return nil, errors.New("prayer: timetable reply has no timings")
	}
	return body.Data.Timings, nil
}

// formatTimings renders the five daily prayers in canonical order, skipping
// any the API did not return.
func formatTimings(timings map[string]string) string {
	parts := make([]string, 0, len(prayerOrder))
	for _, name := range prayerOrder {
		if at, ok := timings[name]; ok {
			parts = append(parts, name+" "+at)
		}
	}
	return strings.Join(parts, ", ")
}
