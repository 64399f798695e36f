// Package vosk provides a Vosk-backed transcriber using the vosk-server
// WebSocket protocol. It implements the stt.Transcriber interface.
//
// Each Transcribe call opens a fresh connection, sends the recognizer
// configuration, streams the PCM utterance in fixed-size chunks, signals
// end-of-file, and collects the recognition results the server emits. The
// per-call connection keeps the client stateless: a crashed or restarted
// vosk-server only fails the in-flight utterance, never a long-lived session.
//
// Usage:
//
//	t, err := vosk.New("ws://localhost:2700",
//	    vosk.WithSampleRate(16000),
//	    vosk.WithTimeout(10*time.Second),
//	)
//	res, err := t.Transcribe(ctx, pcm)
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
)

const (
	defaultSampleRate = 16000
	defaultTimeout    = 10 * time.Second

	// chunkBytes is the size of each binary audio message. 8000 bytes is
	// 250 ms of 16 kHz mono 16-bit PCM, the chunk size the reference
	// vosk-server clients use.
	chunkBytes = 8000
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithSampleRate sets the sample rate (Hz) announced to the recognizer.
// It must match the PCM data passed to Transcribe. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(t *Transcriber) { t.sampleRate = rate }
}

// WithTimeout sets the upper bound on a single Transcribe call, covering
// dial, audio upload, and result collection. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) { t.timeout = d }
}

// Transcriber implements stt.Transcriber backed by a vosk-server instance.
// It is safe for concurrent use; concurrent calls each get their own
// connection.
type Transcriber struct {
	serverURL  string
	sampleRate int
	timeout    time.Duration

	mu     sync.Mutex
	closed bool
}

// New creates a Transcriber that connects to the vosk-server WebSocket
// endpoint at serverURL (e.g., "ws://localhost:2700"). serverURL must be
// non-empty.
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("vosk: serverURL must not be empty")
	}
	t := &Transcriber{
		serverURL:  serverURL,
		sampleRate: defaultSampleRate,
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe sends one complete PCM utterance to vosk-server and returns the
// combined recognition result. An empty utterance yields an empty Result
// without touching the network.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte) (stt.Result, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return stt.Result{}, stt.ErrTranscriberClosed
	}
	if len(pcm) == 0 {
		return stt.Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, t.serverURL, nil)
	if err != nil {
		return stt.Result{}, fmt.Errorf("vosk: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription complete")

	cfg := fmt.Sprintf(`{"config": {"sample_rate": %d, "words": true}}`, t.sampleRate)
	if err := conn.Write(ctx, websocket.MessageText, []byte(cfg)); err != nil {
		return stt.Result{}, fmt.Errorf("vosk: send config: %w", err)
	}

	// Interleave writes and reads: the server emits an (often empty)
	// intermediate result per chunk, and leaving those unread would fill
	// its send buffer on long utterances.
	var agg resultAggregator
	for off := 0; off < len(pcm); off += chunkBytes {
		end := min(off+chunkBytes, len(pcm))
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return stt.Result{}, fmt.Errorf("vosk: send audio: %w", err)
		}
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return stt.Result{}, fmt.Errorf("vosk: read result: %w", err)
		}
		agg.consume(msg)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"eof" : 1}`)); err != nil {
		return stt.Result{}, fmt.Errorf("vosk: send eof: %w", err)
	}
	_, msg, err := conn.Read(ctx)
	if err != nil {
		return stt.Result{}, fmt.Errorf("vosk: read final result: %w", err)
	}
	agg.consume(msg)

	return agg.result(), nil
}

// Close marks the transcriber closed. In-flight Transcribe calls run to
// completion; subsequent calls return [stt.ErrTranscriberClosed].
func (t *Transcriber) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// ---- result parsing ---------------------------------------------------------

// voskResponse is the JSON structure vosk-server sends per recognition event.
// Messages carrying only "partial" are interim guesses and are ignored; a
// message with a "text" field commits a segment.
type voskResponse struct {
	Text   string `json:"text"`
	Result []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Conf  float64 `json:"conf"`
	} `json:"result"`
}

// resultAggregator combines the per-segment results of one utterance into a
// single stt.Result. Vosk commits a segment whenever its internal endpointer
// fires, so a single command can span several committed segments.
type resultAggregator struct {
	parts []string
	words []stt.WordDetail
}

func (a *resultAggregator) consume(msg []byte) {
	var resp voskResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return
	}
	a.parts = append(a.parts, text)
	for _, w := range resp.Result {
		a.words = append(a.words, stt.WordDetail{
			Word:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Conf,
		})
	}
}

func (a *resultAggregator) result() stt.Result {
	res := stt.Result{
		Text:  strings.Join(a.parts, " "),
		Words: a.words,
	}
	if len(a.words) > 0 {
		var sum float64
		for _, w := range a.words {
			sum += w.Confidence
		}
		res.Confidence = sum / float64(len(a.words))
	}
	return res
}
