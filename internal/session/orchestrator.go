package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/baraagh52-hue/Assistan-Trae/internal/observe"
	"github.com/baraagh52-hue/Assistan-Trae/internal/resilience"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/wake"
)

// Apology is spoken when reply generation fails; the conversational loop
// stays alive instead of escalating to an error state.
const Apology = "I'm sorry, I couldn't process that right now. Please try again."

// Defaults for Config fields left zero.
const (
	defaultWakePhrase        = "assistant"
	defaultWakeThreshold     = 0.75
	defaultVoiceThreshold    = 0.01
	defaultHistoryFrames     = 20
	defaultSilenceFrames     = 30
	defaultCaptureTimeout    = 10 * time.Second
	defaultMaxUtterance      = 30 * time.Second
	defaultResponderTimeout  = 30 * time.Second
	defaultResponderAttempts = 3
	defaultReinitBackoff     = 2 * time.Second
)

// ContextAssembler gathers background context for the responder.
// A nil assembler means commands are answered without extra context.
type ContextAssembler interface {
	Assemble(ctx context.Context) string
}

// Providers are the collaborators the orchestrator drives. All fields except
// Context are required.
type Providers struct {
	Source      audio.Source
	Wake        wake.Engine
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Player      tts.Player
	Responder   llm.Responder
	Context     ContextAssembler
}

// Settings are the knobs that may change while the orchestrator runs; they
// are applied at the next pass through the listening loop.
type Settings struct {
	// WakePhrase and WakeThreshold configure the wake-word engine. Changing
	// either reopens the wake session.
	WakePhrase    string
	WakeThreshold float64

	// VoiceThreshold and SilenceFrames tune the voice-activity gate of the
	// next command capture.
	VoiceThreshold float64
	SilenceFrames  int

	// Voice selects the synthesis voice.
	Voice tts.Voice
}

// Config tunes an Orchestrator. Zero fields get defaults.
type Config struct {
	Settings

	// HistoryFrames is the VAD noise-floor window length.
	HistoryFrames int

	// CaptureTimeout abandons a command capture that never hears voice.
	CaptureTimeout time.Duration

	// MaxUtterance force-finalizes an utterance that will not end.
	MaxUtterance time.Duration

	// ResponderTimeout and ResponderAttempts bound reply generation; the
	// timeout spans all attempts.
	ResponderTimeout  time.Duration
	ResponderAttempts int

	// ReinitBackoff is the pause before the one automatic re-initialization
	// that follows a resource failure.
	ReinitBackoff time.Duration

	// Hooks receive the core's push events.
	Hooks Hooks

	// Metrics receives pipeline instrumentation. Nil selects the shared
	// [observe.DefaultMetrics] instance.
	Metrics *observe.Metrics
}

// Orchestrator owns the session state machine. Create one with [New] and
// drive it with [Run]; at most one Run may be active per Orchestrator.
type Orchestrator struct {
	providers Providers
	cfg       Config
	metrics   *observe.Metrics

	mu       sync.Mutex
	state    State
	settings Settings
	pending  *Settings
	micOwner string
	micGen   uint64

	restartCh chan struct{}
}

// New validates the provider set and returns an Orchestrator in
// [StateNotInitialized].
func New(p Providers, cfg Config) (*Orchestrator, error) {
	switch {
	case p.Source == nil:
		return nil, errors.New("session: Source is required")
	case p.Wake == nil:
		return nil, errors.New("session: Wake is required")
	case p.Transcriber == nil:
		return nil, errors.New("session: Transcriber is required")
	case p.Synthesizer == nil:
		return nil, errors.New("session: Synthesizer is required")
	case p.Player == nil:
		return nil, errors.New("session: Player is required")
	case p.Responder == nil:
		return nil, errors.New("session: Responder is required")
	}

	if cfg.WakePhrase == "" {
		cfg.WakePhrase = defaultWakePhrase
	}
	if cfg.WakeThreshold <= 0 {
		cfg.WakeThreshold = defaultWakeThreshold
	}
	if cfg.VoiceThreshold <= 0 {
		cfg.VoiceThreshold = defaultVoiceThreshold
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = defaultSilenceFrames
	}
	if cfg.HistoryFrames <= 0 {
		cfg.HistoryFrames = defaultHistoryFrames
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = defaultCaptureTimeout
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = defaultMaxUtterance
	}
	if cfg.ResponderTimeout <= 0 {
		cfg.ResponderTimeout = defaultResponderTimeout
	}
	if cfg.ResponderAttempts <= 0 {
		cfg.ResponderAttempts = defaultResponderAttempts
	}
	if cfg.ReinitBackoff <= 0 {
		cfg.ReinitBackoff = defaultReinitBackoff
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	return &Orchestrator{
		providers: p,
		cfg:       cfg,
		metrics:   metrics,
		settings:  cfg.Settings,
		restartCh: make(chan struct{}, 1),
	}, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// UpdateSettings queues new settings; they take effect before the next
// listening pass. Safe to call from any goroutine.
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &s
}

// Restart asks an orchestrator stuck in [StateError] to try initializing
// again. Non-blocking; redundant restarts coalesce.
func (o *Orchestrator) Restart() {
	select {
	case o.restartCh <- struct{}{}:
	default:
	}
}

// Run drives the state machine until ctx is cancelled. It always leaves the
// orchestrator in [StateStopped]. The returned error is non-nil only when
// the run ended for a reason other than cancellation.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.transition(StateStopped)

	autoRetried := false
	for {
		err := o.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}

		slog.Error("session failed on resource error", "error", err)
		o.transition(StateError)

		if !autoRetried {
			// One bounded re-initialization before requiring an operator.
			autoRetried = true
			select {
			case <-time.After(o.cfg.ReinitBackoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		select {
		case <-o.restartCh:
			autoRetried = false
		case <-ctx.Done():
			return nil
		}
	}
}

// runSession initializes the wake engine and loops through listening,
// capture, processing, and speaking until ctx is cancelled or a resource
// error escalates.
func (o *Orchestrator) runSession(ctx context.Context) error {
	o.transition(StateInitializing)

	o.takePendingSettings()
	wakeCfg := o.wakeConfig()
	wakeSess, err := o.providers.Wake.Open(ctx, wakeCfg)
	if err != nil {
		return fmt.Errorf("session: open wake engine: %w", err)
	}
	defer func() {
		if cerr := wakeSess.Close(); cerr != nil {
			slog.Warn("wake session close failed", "error", cerr)
		}
	}()

	o.transition(StateReady)

	for ctx.Err() == nil {
		if o.takePendingSettings() {
			if next := o.wakeConfig(); next != wakeCfg {
				if cerr := wakeSess.Close(); cerr != nil {
					slog.Warn("wake session close failed", "error", cerr)
				}
				wakeSess, err = o.providers.Wake.Open(ctx, next)
				if err != nil {
					return fmt.Errorf("session: reopen wake engine: %w", err)
				}
				wakeCfg = next
			}
		}

		o.transition(StateListening)
		det, err := o.listenForWake(ctx, wakeSess)
		if err != nil {
			return err
		}
		if det == nil {
			return nil // cancelled
		}

		rec, err := o.handleCommand(ctx, *det)
		if err != nil {
			return err
		}
		if ctx.Err() == nil {
			o.publishInteraction(rec)
		}
	}
	return nil
}

// ---- listening --------------------------------------------------------------

// listenForWake holds the microphone for the wake-word detector and feeds it
// frames until a detection fires. Returns (nil, nil) on cancellation.
func (o *Orchestrator) listenForWake(ctx context.Context, sess wake.Session) (*wake.Detection, error) {
	frames, err := o.acquireMic(ctx, "wake")
	if err != nil {
		return nil, err
	}
	sess.Reset()

	for {
		select {
		case <-ctx.Done():
			o.releaseMic()
			return nil, nil

		case frame, ok := <-frames:
			if !ok {
				o.releaseMic()
				return nil, o.deviceError("wake listening")
			}
			if det, fired := sess.Feed(frame); fired {
				o.releaseMic()
				o.metrics.RecordWakeDetection(ctx, det.Phrase)
				slog.Info("wake word detected",
					"phrase", det.Phrase,
					"confidence", det.Confidence)
				return &det, nil
			}
		}
	}
}

// ---- command handling -------------------------------------------------------

// handleCommand runs one wake-to-reply exchange: capture, transcription,
// reply generation, playback. Session-local failures end in the record's
// outcome; only resource failures return an error.
func (o *Orchestrator) handleCommand(ctx context.Context, det wake.Detection) (InteractionRecord, error) {
	rec := InteractionRecord{
		WakeConfidence: det.Confidence,
		StartedAt:      time.Now(),
	}

	o.transition(StateCommandCapture)
	utt, err := o.captureUtterance(ctx)
	if err != nil {
		return rec, err
	}
	if ctx.Err() != nil {
		return rec, nil
	}

	if !utt.VoiceStarted {
		slog.Info("command capture heard no voice, abandoning")
		rec.Outcome = OutcomeEmpty
		rec.EndedAt = time.Now()
		return rec, nil
	}

	sttStart := time.Now()
	result, err := o.providers.Transcriber.Transcribe(ctx, utt.PCM)
	o.metrics.RecordSTTDuration(ctx, time.Since(sttStart))
	if err != nil {
		slog.Warn("transcription failed, treating as empty", "error", err)
		o.metrics.RecordProviderError(ctx, "stt", "transcribe")
	}
	command := strings.TrimSpace(result.Text)
	if command == "" {
		rec.Outcome = OutcomeEmpty
		rec.EndedAt = time.Now()
		return rec, nil
	}
	rec.Command = command
	slog.Info("command transcribed",
		"command", command,
		"confidence", result.Confidence,
		"utterance", utt.Duration)

	o.transition(StateProcessing)
	reply, err := o.generateReply(ctx, command)
	if err != nil {
		slog.Warn("reply generation failed, apologising", "error", err)
		o.metrics.RecordProviderError(ctx, "llm", "generate")
		reply = Apology
		rec.Outcome = OutcomeFailed
	}
	rec.Response = reply

	o.transition(StateSpeaking)
	if err := o.speak(ctx, reply); err != nil {
		slog.Warn("speech output failed", "error", err)
		rec.Outcome = OutcomeFailed
	}

	rec.EndedAt = time.Now()
	return rec, nil
}

// captureUtterance holds the microphone for one voice-activity-gated
// capture.
func (o *Orchestrator) captureUtterance(ctx context.Context) (captureResult, error) {
	frames, err := o.acquireMic(ctx, "command")
	if err != nil {
		return captureResult{}, err
	}

	o.mu.Lock()
	cfg := captureConfig{
		VoiceThreshold: o.settings.VoiceThreshold,
		HistoryFrames:  o.cfg.HistoryFrames,
		SilenceFrames:  o.settings.SilenceFrames,
		Timeout:        o.cfg.CaptureTimeout,
		MaxUtterance:   o.cfg.MaxUtterance,
	}
	o.mu.Unlock()

	res, err := runCommandCapture(ctx, frames, cfg)
	o.releaseMic()

	switch {
	case errors.Is(err, errStreamEnded):
		return captureResult{}, o.deviceError("command capture")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return captureResult{}, nil
	case err != nil:
		return captureResult{}, err
	}
	return res, nil
}

// generateReply assembles collaborator context and asks the responder,
// bounded by the configured timeout across all attempts.
func (o *Orchestrator) generateReply(ctx context.Context, command string) (string, error) {
	background := ""
	if o.providers.Context != nil {
		ctxStart := time.Now()
		background = o.providers.Context.Assemble(ctx)
		o.metrics.RecordContextDuration(ctx, time.Since(ctxStart))
	}

	genCtx, cancel := context.WithTimeout(ctx, o.cfg.ResponderTimeout)
	defer cancel()

	genStart := time.Now()
	reply, err := resilience.RetryWithResult(genCtx, resilience.RetryConfig{
		Name:     "responder",
		Attempts: o.cfg.ResponderAttempts,
	}, func(ctx context.Context) (string, error) {
		return o.providers.Responder.Generate(ctx, command, background)
	})
	o.metrics.RecordLLMDuration(ctx, time.Since(genStart))
	return reply, err
}

// speak synthesizes text and plays it. The synthesizer applies its own
// timeout and retry budget; playback completion always fires, so this never
// stalls the loop.
func (o *Orchestrator) speak(ctx context.Context, text string) error {
	o.mu.Lock()
	voice := o.settings.Voice
	o.mu.Unlock()

	ttsStart := time.Now()
	clip, err := o.providers.Synthesizer.Synthesize(ctx, text, voice)
	o.metrics.RecordTTSDuration(ctx, time.Since(ttsStart))
	if err != nil {
		o.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return fmt.Errorf("session: synthesize reply: %w", err)
	}
	if err := o.providers.Player.Play(ctx, clip); err != nil {
		o.metrics.RecordProviderError(ctx, "player", "play")
		return fmt.Errorf("session: play reply: %w", err)
	}
	return nil
}

// ---- microphone arbitration -------------------------------------------------

// acquireMic starts the audio source for the named owner. Ownership is
// exclusive: a second owner while one is active is an invariant violation
// and surfaces as a fatal-error event.
func (o *Orchestrator) acquireMic(ctx context.Context, owner string) (<-chan audio.Frame, error) {
	o.mu.Lock()
	if o.micOwner != "" {
		current := o.micOwner
		o.mu.Unlock()
		o.fatal("session", fmt.Sprintf("capture session %q requested while %q still owns the microphone", owner, current), true)
		return nil, fmt.Errorf("session: concurrent capture ownership (%s vs %s)", owner, current)
	}
	o.micOwner = owner
	o.micGen++
	gen := o.micGen
	o.mu.Unlock()

	frames, err := o.providers.Source.Start(ctx)
	if err != nil {
		o.mu.Lock()
		o.micOwner = ""
		o.mu.Unlock()
		return nil, fmt.Errorf("session: start capture for %s: %w", owner, err)
	}
	o.metrics.CaptureAcquired(ctx)
	slog.Debug("capture session started", "owner", owner, "generation", gen)
	return frames, nil
}

// releaseMic stops the source and clears ownership. Stop-before-start: the
// next acquireMic only runs after this returns.
func (o *Orchestrator) releaseMic() {
	if err := o.providers.Source.Stop(); err != nil {
		slog.Warn("audio source stop failed", "error", err)
	}
	o.mu.Lock()
	o.micOwner = ""
	o.mu.Unlock()
	// Background context: release also runs after cancellation.
	o.metrics.CaptureReleased(context.Background())
}

// deviceError folds the source's failure cause into a resource error.
func (o *Orchestrator) deviceError(during string) error {
	cause := o.providers.Source.Err()
	if cause == nil {
		cause = audio.ErrDeviceFailed
	}
	return fmt.Errorf("session: device lost during %s: %w", during, cause)
}

// ---- bookkeeping ------------------------------------------------------------

// transition is the single place the state changes. It is only called
// from the Run goroutine, so transitions are totally ordered.
func (o *Orchestrator) transition(next State) {
	o.mu.Lock()
	prev := o.state
	if prev == next {
		o.mu.Unlock()
		return
	}
	o.state = next
	o.mu.Unlock()

	slog.Info("session state changed", "from", prev, "to", next)
	if o.cfg.Hooks.OnStatusChanged != nil {
		o.cfg.Hooks.OnStatusChanged(StatusChange{Previous: prev, New: next, At: time.Now()})
	}
}

func (o *Orchestrator) publishInteraction(rec InteractionRecord) {
	slog.Info("interaction completed",
		"outcome", rec.Outcome,
		"command", rec.Command,
		"duration", rec.EndedAt.Sub(rec.StartedAt))
	if o.cfg.Hooks.OnInteractionCompleted != nil {
		o.cfg.Hooks.OnInteractionCompleted(rec)
	}
}

func (o *Orchestrator) fatal(component, message string, restart bool) {
	slog.Error("fatal session error", "component", component, "message", message)
	if o.cfg.Hooks.OnFatalError != nil {
		o.cfg.Hooks.OnFatalError(FatalError{
			Component:       component,
			Message:         message,
			RestartRequired: restart,
		})
	}
}

// takePendingSettings applies queued settings, reporting whether any were
// taken. Called only from the Run goroutine.
func (o *Orchestrator) takePendingSettings() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return false
	}
	s := *o.pending
	o.pending = nil

	if s.WakePhrase == "" {
		s.WakePhrase = o.settings.WakePhrase
	}
	if s.WakeThreshold <= 0 {
		s.WakeThreshold = o.settings.WakeThreshold
	}
	if s.VoiceThreshold <= 0 {
		s.VoiceThreshold = o.settings.VoiceThreshold
	}
	if s.SilenceFrames <= 0 {
		s.SilenceFrames = o.settings.SilenceFrames
	}
	if s.Voice == (tts.Voice{}) {
		s.Voice = o.settings.Voice
	}
	o.settings = s
	slog.Info("session settings updated",
		"wake_phrase", s.WakePhrase,
		"voice_threshold", s.VoiceThreshold,
		"silence_frames", s.SilenceFrames)
	return true
}

func (o *Orchestrator) wakeConfig() wake.Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return wake.Config{
		Phrase:    o.settings.WakePhrase,
		Threshold: o.settings.WakeThreshold,
	}
}
