// Package app wires all assistant subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the
// history store, context providers, session orchestrator, and status server;
// Run executes the voice loop; Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithHistoryStore, WithAssembler, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baraagh52-hue/Assistan-Trae/internal/assist"
	"github.com/baraagh52-hue/Assistan-Trae/internal/assist/activity"
	"github.com/baraagh52-hue/Assistan-Trae/internal/assist/prayer"
	"github.com/baraagh52-hue/Assistan-Trae/internal/assist/tasks"
	"github.com/baraagh52-hue/Assistan-Trae/internal/config"
	"github.com/baraagh52-hue/Assistan-Trae/internal/health"
	"github.com/baraagh52-hue/Assistan-Trae/internal/history"
	"github.com/baraagh52-hue/Assistan-Trae/internal/observe"
	"github.com/baraagh52-hue/Assistan-Trae/internal/session"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/wake"
)

// Providers holds one interface value per provider slot. All fields are
// required. Populated by main.go via the config registry and the audio
// bridge.
type Providers struct {
	Source audio.Source
	Player tts.Player
	Wake   wake.Engine
	STT    stt.Transcriber
	TTS    tts.Synthesizer
	LLM    llm.Responder
}

// App owns all subsystem lifetimes and hosts the voice interaction loop.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store     *history.Store
	assembler session.ContextAssembler
	orch      *session.Orchestrator
	metrics   *observe.Metrics
	httpSrv   *http.Server
	logLevel  *slog.LevelVar

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects an interaction store instead of opening one from
// the configured DSN.
func WithHistoryStore(s *history.Store) Option {
	return func(a *App) { a.store = s }
}

// WithAssembler injects a context assembler instead of building one from the
// configured context providers.
func WithAssembler(ca session.ContextAssembler) Option {
	return func(a *App) { a.assembler = ca }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the App the level variable behind the process logger
// so log-level config changes apply without a restart.
func WithLogLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Interaction history ───────────────────────────────────────────
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	// ── 2. Context providers ─────────────────────────────────────────────
	if err := a.initAssist(ctx); err != nil {
		return nil, fmt.Errorf("app: init assist: %w", err)
	}

	// ── 3. Session orchestrator ──────────────────────────────────────────
	if err := a.initSession(); err != nil {
		return nil, fmt.Errorf("app: init session: %w", err)
	}

	// ── 4. Status server ─────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initHistory opens the PostgreSQL interaction store, unless one was
// injected. An empty DSN leaves the store nil, which drops all records.
func (a *App) initHistory(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.History.PostgresDSN
	if dsn == "" {
		slog.Info("interaction history disabled (no postgres_dsn)")
		return nil
	}

	store, err := history.Open(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("interaction history connected")
	return nil
}

// initAssist builds the context assembler from the configured providers.
// With no providers configured the assembler stays nil and commands are
// answered without background context.
func (a *App) initAssist(ctx context.Context) error {
	if a.assembler != nil {
		return nil
	}

	var providers []assist.Provider

	if tc := a.cfg.Assist.Tasks; tc != nil {
		p, err := tasks.Connect(ctx, tasks.Config{
			Command: tc.Command,
			URL:     tc.URL,
			Tool:    tc.Tool,
		})
		if err != nil {
			return fmt.Errorf("connect tasks provider: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		providers = append(providers, p)
		slog.Info("context provider enabled", "name", p.Name())
	}

	if pc := a.cfg.Assist.Prayer; pc != nil {
		p, err := prayer.New(prayer.Config{
			BaseURL: pc.BaseURL,
			City:    pc.City,
			Country: pc.Country,
			Method:  pc.Method,
		})
		if err != nil {
			return fmt.Errorf("create prayer provider: %w", err)
		}
		providers = append(providers, p)
		slog.Info("context provider enabled", "name", p.Name())
	}

	if ac := a.cfg.Assist.Activity; ac != nil {
		p, err := activity.New(a.store, ac.Limit)
		if err != nil {
			return fmt.Errorf("create activity provider: %w", err)
		}
		providers = append(providers, p)
		slog.Info("context provider enabled", "name", p.Name())
	}

	if len(providers) > 0 {
		a.assembler = assist.NewAssembler(providers)
	}
	return nil
}

// initSession assembles the orchestrator and wires its events to history and
// metrics.
func (a *App) initSession() error {
	orch, err := session.New(session.Providers{
		Source:      a.providers.Source,
		Wake:        a.providers.Wake,
		Transcriber: a.providers.STT,
		Synthesizer: a.providers.TTS,
		Player:      a.providers.Player,
		Responder:   a.providers.LLM,
		Context:     a.assembler,
	}, session.Config{
		Settings: a.sessionSettings(a.cfg),
		Metrics:  a.metrics,
		Hooks: session.Hooks{
			OnStatusChanged:        a.onStatusChanged,
			OnInteractionCompleted: a.onInteractionCompleted,
			OnFatalError:           a.onFatalError,
		},
	})
	if err != nil {
		return err
	}
	a.orch = orch
	return nil
}

// initHTTP builds the status server hosting health and metrics endpoints.
// An empty listen address disables it.
func (a *App) initHTTP() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}

	checkers := []health.Checker{
		health.SynthesizerChecker(a.providers.TTS),
		health.SessionChecker(a.orch),
	}
	if a.store != nil {
		checkers = append(checkers, health.HistoryChecker(a.store))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	// The OTel Prometheus exporter feeds the default registry, so the stock
	// promhttp handler serves all recorded metrics.
	mux.Handle("GET /metrics", promhttp.Handler())

	a.httpSrv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ─── Event hooks ─────────────────────────────────────────────────────────────

func (a *App) onStatusChanged(sc session.StatusChange) {
	a.metrics.RecordTransition(context.Background(), sc.Previous.String(), sc.New.String())
}

func (a *App) onInteractionCompleted(rec session.InteractionRecord) {
	a.metrics.RecordInteraction(context.Background(), rec.Outcome.String())
	a.store.RecordAsync(history.Interaction{
		Command:        rec.Command,
		Reply:          rec.Response,
		Outcome:        rec.Outcome.String(),
		WakeConfidence: rec.WakeConfidence,
		StartedAt:      rec.StartedAt,
		Duration:       rec.EndedAt.Sub(rec.StartedAt),
	})
}

func (a *App) onFatalError(fe session.FatalError) {
	slog.Error("fatal session error",
		"component", fe.Component,
		"message", fe.Message,
		"restart_required", fe.RestartRequired,
	)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the status server (if configured) and blocks on the voice
// interaction loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.httpSrv != nil {
		go func() {
			var err error
			if tc := a.cfg.Server.TLS; tc != nil {
				err = a.httpSrv.ListenAndServeTLS(tc.CertFile, tc.KeyFile)
			} else {
				err = a.httpSrv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status server error", "err", err)
			}
		}()
		slog.Info("status server listening", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)
	}

	return a.orch.Run(ctx)
}

// ─── Config changes ──────────────────────────────────────────────────────────

// HandleConfigChange applies a reloaded configuration: hot-reloadable
// settings reach the running session on its next listening pass, and changes
// outside that set are logged as needing a restart. Wire this to a
// [config.Watcher].
func (a *App) HandleConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.SettingsChanged() {
		a.orch.UpdateSettings(a.sessionSettings(new))
		slog.Info("session settings updated",
			"wake_phrase", new.Wake.Phrase,
			"wake_threshold", new.Wake.Threshold,
			"voice_threshold", new.VAD.VoiceThreshold,
			"silence_frames", new.VAD.SilenceFrames,
			"voice", new.Providers.TTS.Voice,
		)
	}

	if d.RestartRequired {
		slog.Warn("configuration change requires a restart to take effect")
	}
}

// RestartSession requests re-initialization of a session that is parked in
// the error state.
func (a *App) RestartSession() {
	slog.Info("session restart requested")
	a.orch.Restart()
}

// Session exposes the orchestrator, mainly so callers can inspect its state.
func (a *App) Session() *session.Orchestrator {
	return a.orch
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Stop accepting status requests first.
		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				slog.Warn("status server shutdown error", "err", err)
			}
		}

		// Run closers in order.
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// sessionSettings converts the hot-reloadable slice of cfg into session
// settings.
func (a *App) sessionSettings(cfg *config.Config) session.Settings {
	return session.Settings{
		WakePhrase:     cfg.Wake.Phrase,
		WakeThreshold:  cfg.Wake.Threshold,
		VoiceThreshold: cfg.VAD.VoiceThreshold,
		SilenceFrames:  cfg.VAD.SilenceFrames,
		Voice:          tts.Voice{ID: cfg.Providers.TTS.Voice},
	}
}
