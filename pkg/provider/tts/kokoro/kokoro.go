// Package kokoro provides a Kokoro-backed synthesizer that connects to a
// kokoro-fastapi server via its OpenAI-compatible REST API. It implements
// the tts.Synthesizer interface.
//
// Synthesis is performed via POST /v1/audio/speech with a JSON body; the
// voice catalogue is retrieved from GET /v1/audio/voices. Responses are WAV
// files whose headers are parsed (not assumed to be 44 bytes) and stripped,
// yielding raw PCM clips.
//
// Transient failures (connection errors, HTTP 5xx) are retried with
// exponential backoff up to a fixed attempt budget, so a briefly restarting
// server does not surface as a failed interaction.
//
// Typical usage:
//
//	s, err := kokoro.New("http://localhost:8880",
//	    kokoro.WithVoice("af_heart"),
//	    kokoro.WithTimeout(10*time.Second),
//	)
//	clip, err := s.Synthesize(ctx, "Good morning.", tts.Voice{})
package kokoro

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	speechEndpoint = "/v1/audio/speech"
	voicesEndpoint = "/v1/audio/voices"

	defaultModel   = "kokoro"
	defaultVoice   = "af_heart"
	defaultTimeout = 10 * time.Second

	// maxAttempts bounds how many times one Synthesize call may hit the
	// server. backoffBase is doubled per retry.
	maxAttempts = 2
	backoffBase = 200 * time.Millisecond
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithVoice sets the voice used when Synthesize is called with a zero
// tts.Voice. Defaults to "af_heart".
func WithVoice(id string) Option {
	return func(s *Synthesizer) { s.voice = id }
}

// WithModel sets the model identifier sent to the server. Defaults to
// "kokoro".
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithTimeout sets the per-request HTTP timeout. The total Synthesize bound
// is roughly timeout times the attempt budget. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// Synthesizer implements tts.Synthesizer backed by a kokoro-fastapi server.
// It is safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	model      string
	voice      string
	httpClient *http.Client
}

// New creates a Synthesizer that targets the kokoro-fastapi server at
// serverURL (e.g., "http://localhost:8880"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("kokoro: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL: strings.TrimRight(serverURL, "/"),
		model:     defaultModel,
		voice:     defaultVoice,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// speechRequest is the JSON body sent to POST /v1/audio/speech.
type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// voicesResponse is the JSON body returned by GET /v1/audio/voices.
type voicesResponse struct {
	Voices []string `json:"voices"`
}

// Synthesize converts text to a PCM clip. Transient failures are retried
// with exponential backoff; a non-retryable server rejection (HTTP 4xx)
// fails immediately.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return tts.Clip{}, errors.New("kokoro: text must not be empty")
	}
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = s.voice
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return tts.Clip{}, fmt.Errorf("kokoro: synthesis aborted: %w", ctx.Err())
			}
		}

		clip, retryable, err := s.synthesizeOnce(ctx, text, voiceID)
		if err == nil {
			return clip, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return tts.Clip{}, lastErr
}

// synthesizeOnce performs a single POST /v1/audio/speech call. The second
// return value reports whether the failure is worth retrying.
func (s *Synthesizer) synthesizeOnce(ctx context.Context, text, voiceID string) (tts.Clip, bool, error) {
	body := speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          voiceID,
		ResponseFormat: "wav",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return tts.Clip{}, false, fmt.Errorf("kokoro: marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+speechEndpoint, bytes.NewReader(data))
	if err != nil {
		return tts.Clip{}, false, fmt.Errorf("kokoro: create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return tts.Clip{}, true, fmt.Errorf("kokoro: POST %s: %w", speechEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return tts.Clip{}, retryable, fmt.Errorf("kokoro: POST %s returned status %d", speechEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, true, fmt.Errorf("kokoro: read WAV response: %w", err)
	}

	info, err := parseWAV(wav)
	if err != nil {
		return tts.Clip{}, false, err
	}

	return tts.Clip{
		PCM:        wav[info.DataOffset:],
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, false, nil
}

// ListVoices retrieves the voice catalogue from GET /v1/audio/voices.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kokoro: create list-voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kokoro: GET %s: %w", voicesEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kokoro: GET %s returned status %d", voicesEndpoint, resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("kokoro: decode voices response: %w", err)
	}

	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, name := range vr.Voices {
		voices = append(voices, tts.Voice{ID: name, Name: name})
	}
	return voices, nil
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset int // byte offset of the first PCM sample
	SampleRate int // samples per second
	Channels   int // 1 = mono, 2 = stereo
}

// parseWAV scans the RIFF/WAVE container in wav and returns the data offset
// and audio format from the "fmt " sub-chunk. This is more robust than
// hardcoding a fixed 44-byte offset because the fmt chunk size may vary.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("kokoro: WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("kokoro: WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("kokoro: WAV response missing WAVE identifier")
	}

	var info wavInfo
	foundFmt := false

	// Walk RIFF chunks starting immediately after the 12-byte RIFF/WAVE header.
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				foundFmt = true
			}
		case "data":
			info.DataOffset = offset + 8
			if !foundFmt {
				// fmt chunk normally precedes data; fall back to the
				// server's native format when it didn't.
				info.SampleRate = 24000
				info.Channels = 1
			}
			return info, nil
		}

		// Advance past this chunk (chunks are word-aligned: pad by 1 if odd size).
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("kokoro: WAV response missing data chunk")
}
