package kokoro

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
)

// buildWAV wraps pcm in a minimal RIFF/WAVE container.
func buildWAV(pcm []byte, sampleRate, channels int) []byte {
	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	s, err := New("http://localhost:8880")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "  ", tts.Voice{}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSynthesize_Success(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != speechEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Input != "good morning" {
			t.Errorf("input: got %q", req.Input)
		}
		if req.Voice != "af_heart" {
			t.Errorf("voice: got %q, want default af_heart", req.Voice)
		}
		if req.ResponseFormat != "wav" {
			t.Errorf("response_format: got %q", req.ResponseFormat)
		}
		w.Write(buildWAV(pcm, 24000, 1))
	}))
	defer srv.Close()

	s, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clip, err := s.Synthesize(context.Background(), "good morning", tts.Voice{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.SampleRate != 24000 || clip.Channels != 1 {
		t.Errorf("format: got %dHz %dch, want 24000Hz 1ch", clip.SampleRate, clip.Channels)
	}
	if len(clip.PCM) != len(pcm) {
		t.Errorf("pcm length: got %d, want %d", len(clip.PCM), len(pcm))
	}
}

func TestSynthesize_VoiceOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Voice != "am_adam" {
			t.Errorf("voice: got %q, want am_adam", req.Voice)
		}
		w.Write(buildWAV([]byte{0, 0}, 24000, 1))
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "hi", tts.Voice{ID: "am_adam"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
}

func TestSynthesize_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write(buildWAV([]byte{0, 0}, 24000, 1))
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "hi", tts.Voice{}); err != nil {
		t.Fatalf("Synthesize after retry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls: got %d, want 2", got)
	}
}

func TestSynthesize_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "hi", tts.Voice{}); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls: got %d, want 1 (no retry on 4xx)", got)
	}
}

func TestSynthesize_AttemptBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	if _, err := s.Synthesize(context.Background(), "hi", tts.Voice{}); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != maxAttempts {
		t.Errorf("server calls: got %d, want %d", got, maxAttempts)
	}
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != voicesEndpoint {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(voicesResponse{Voices: []string{"af_heart", "am_adam"}})
	}))
	defer srv.Close()

	s, _ := New(srv.URL)
	voices, err := s.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].ID != "af_heart" {
		t.Errorf("first voice: got %q, want af_heart", voices[0].ID)
	}
}

// ---- WAV parsing ----

func TestParseWAV(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	info, err := parseWAV(buildWAV(pcm, 24000, 1))
	if err != nil {
		t.Fatalf("parseWAV: %v", err)
	}
	if info.DataOffset != 44 {
		t.Errorf("data offset: got %d, want 44", info.DataOffset)
	}
	if info.SampleRate != 24000 || info.Channels != 1 {
		t.Errorf("format: got %dHz %dch", info.SampleRate, info.Channels)
	}
}

func TestParseWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("JUNK0000JUNK"), make([]byte, 40)...)},
		{"missing data chunk", buildWAV(nil, 24000, 1)[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseWAV(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClipDuration(t *testing.T) {
	clip := tts.Clip{PCM: make([]byte, 48000), SampleRate: 24000, Channels: 1}
	if got := clip.Duration(); got != time.Second {
		t.Errorf("duration: got %v, want 1s", got)
	}
	if got := (tts.Clip{PCM: []byte{0, 0}}).Duration(); got != 0 {
		t.Errorf("invalid clip duration: got %v, want 0", got)
	}
}
