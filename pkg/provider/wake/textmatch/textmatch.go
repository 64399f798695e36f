// Package textmatch implements wake-phrase spotting on top of a speech-to-text
// transcriber. It implements the wake.Engine interface.
//
// The engine keeps a rolling window of recent audio and transcribes it at a
// fixed hop interval in a background goroutine. The transcription result is
// scored against the configured phrase with Double Metaphone phonetic codes
// and Jaro-Winkler similarity, so near-misses like "uh sistant" still trigger.
// Feed itself never blocks on recognition: a hit surfaces on the first Feed
// call after the background pass commits it.
//
// Windows whose audio energy stays below a floor are skipped entirely, which
// keeps the transcriber idle while the room is quiet.
package textmatch

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/wake"
)

const (
	defaultThreshold = 0.75
	defaultWindow    = 2 * time.Second
	defaultHopFrames = 10

	// phoneticThreshold and fuzzyThreshold gate the two phrase-matching
	// stages; see scorePhrase.
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85

	// silenceRMS is the energy floor (16-bit PCM units) below which a window
	// is not worth transcribing.
	silenceRMS = 300.0
)

// Compile-time assertion that Engine implements wake.Engine.
var _ wake.Engine = (*Engine)(nil)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithWindow sets the rolling audio window duration the engine transcribes.
// Longer windows catch slowly spoken phrases at the cost of latency.
// Defaults to 2 s.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithHopFrames sets how many frames elapse between background transcription
// passes. Defaults to 10 (500 ms at 50 ms frames).
func WithHopFrames(n int) Option {
	return func(e *Engine) { e.hopFrames = n }
}

// Engine spots wake phrases by transcribing a rolling audio window and
// scoring the text against the phrase. Safe for concurrent use; each Open
// call returns an independent session.
type Engine struct {
	transcriber stt.Transcriber
	window      time.Duration
	hopFrames   int
}

// New creates an Engine on top of the given transcriber. The transcriber's
// lifetime is owned by the caller; closing the engine's sessions does not
// close it.
func New(transcriber stt.Transcriber, opts ...Option) (*Engine, error) {
	if transcriber == nil {
		return nil, errors.New("textmatch: transcriber must not be nil")
	}
	e := &Engine{
		transcriber: transcriber,
		window:      defaultWindow,
		hopFrames:   defaultHopFrames,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Open creates a new spotting session. ctx bounds the session's background
// transcription work; cancelling it stops further passes.
func (e *Engine) Open(ctx context.Context, cfg wake.Config) (wake.Session, error) {
	if cfg.Phrase == "" {
		return nil, errors.New("textmatch: wake phrase must not be empty")
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	windowBytes := int(e.window.Seconds() * float64(audio.SampleRate) * 2)

	return &session{
		ctx:         ctx,
		transcriber: e.transcriber,
		phrase:      cfg.Phrase,
		threshold:   threshold,
		hopFrames:   e.hopFrames,
		windowBytes: windowBytes,
	}, nil
}

// session is a live spotting session. Feed/Reset run on the orchestrator
// goroutine; the background transcription pass publishes into pending under
// mu.
type session struct {
	ctx         context.Context
	transcriber stt.Transcriber
	phrase      string
	threshold   float64
	hopFrames   int
	windowBytes int

	buf        []byte
	frameCount int
	fired      bool

	mu       sync.Mutex
	pending  *wake.Detection
	inflight bool
	closed   bool
	wg       sync.WaitGroup
}

var _ wake.Session = (*session)(nil)

// Feed appends the frame to the rolling window, launches a background
// transcription pass every hop, and reports any detection committed by an
// earlier pass.
func (s *session) Feed(frame audio.Frame) (wake.Detection, bool) {
	if s.fired {
		return wake.Detection{}, false
	}

	s.buf = append(s.buf, frame.Data...)
	if len(s.buf) > s.windowBytes {
		s.buf = s.buf[len(s.buf)-s.windowBytes:]
	}
	s.frameCount++

	if s.frameCount%s.hopFrames == 0 {
		s.maybeSpawnPass()
	}

	s.mu.Lock()
	det := s.pending
	s.pending = nil
	s.mu.Unlock()
	if det != nil {
		s.fired = true
		return *det, true
	}
	return wake.Detection{}, false
}

// Reset re-arms the spotter and discards buffered audio and any detection
// that landed while the orchestrator was busy.
func (s *session) Reset() {
	s.buf = s.buf[:0]
	s.frameCount = 0
	s.fired = false
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Close waits for any in-flight transcription pass to finish.
func (s *session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// maybeSpawnPass starts a background transcription of the current window
// unless one is already running or the window is silent.
func (s *session) maybeSpawnPass() {
	if pcmRMS(s.buf) < silenceRMS {
		return
	}

	s.mu.Lock()
	if s.inflight || s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.mu.Unlock()

	window := make([]byte, len(s.buf))
	copy(window, s.buf)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.inflight = false
			s.mu.Unlock()
		}()

		res, err := s.transcriber.Transcribe(s.ctx, window)
		if err != nil {
			if s.ctx.Err() == nil {
				slog.Debug("wake transcription pass failed", "error", err)
			}
			return
		}
		score, ok := scorePhrase(res.Text, s.phrase, phoneticThreshold, fuzzyThreshold)
		if !ok || score < s.threshold {
			return
		}

		s.mu.Lock()
		if !s.closed {
			s.pending = &wake.Detection{
				Phrase:     s.phrase,
				Confidence: score,
				DetectedAt: time.Now(),
			}
		}
		s.mu.Unlock()
	}()
}

// pcmRMS returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer, in PCM sample units (0 to 32767).
func pcmRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := float64(sample)
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
