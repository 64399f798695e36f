// Command trae is the main entry point for the Trae voice assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/baraagh52-hue/Assistan-Trae/internal/app"
	"github.com/baraagh52-hue/Assistan-Trae/internal/config"
	"github.com/baraagh52-hue/Assistan-Trae/internal/observe"
	"github.com/baraagh52-hue/Assistan-Trae/internal/resilience"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/audio/wsmic"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm/anyllm"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/llm/openai"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt/vosk"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/stt/whisper"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/tts/kokoro"
	"github.com/baraagh52-hue/Assistan-Trae/pkg/provider/wake/textmatch"
)

// shutdownGrace bounds graceful teardown after the voice loop exits.
const shutdownGrace = 5 * time.Second

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "trae: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "trae: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.Server.LogLevel.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("trae starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "trae",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer func() {
		if err := providers.STT.Close(); err != nil {
			slog.Warn("transcriber close error", "err", err)
		}
	}()

	// ── Audio bridge ──────────────────────────────────────────────────────────
	metrics := observe.DefaultMetrics()
	bridge, err := wsmic.New(cfg.Audio.BridgeURL,
		wsmic.WithDropHook(func(dropped uint64) {
			metrics.RecordDroppedFrames(context.Background(), int64(dropped))
		}))
	if err != nil {
		slog.Error("failed to create audio bridge", "err", err)
		return 1
	}
	defer func() {
		if err := bridge.Close(); err != nil {
			slog.Warn("audio bridge close error", "err", err)
		}
	}()
	providers.Source = bridge
	providers.Player = bridge

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLogLevelVar(logLevel))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config file watcher ───────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, application.HandleConfigChange)
	if err != nil {
		slog.Error("failed to watch config file", "err", err)
		return 1
	}
	defer watcher.Stop()

	slog.Info("assistant ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with the assistant. Used for startup logging.
var builtinProviders = map[string][]string{
	"stt": {"vosk", "whisper"},
	"tts": {"kokoro"},
	"llm": {"openai", "anyllm", "anthropic", "ollama"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the
// appropriate provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("vosk", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []vosk.Option
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, vosk.WithSampleRate(rate))
		}
		return vosk.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("kokoro", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []kokoro.Option
		if entry.Voice != "" {
			opts = append(opts, kokoro.WithVoice(entry.Voice))
		}
		if entry.Model != "" {
			opts = append(opts, kokoro.WithModel(entry.Model))
		}
		return kokoro.New(entry.BaseURL, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	// openai talks to the OpenAI API (or a compatible server) directly.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Responder, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if prompt := optString(entry.Options, "system_prompt"); prompt != "" {
			opts = append(opts, openai.WithSystemPrompt(prompt))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// anyllm routes to any supported backend; the backend name comes from
	// the "provider" option. anthropic and ollama are shorthands for the
	// two most common non-OpenAI backends.
	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Responder, error) {
		backend := optString(entry.Options, "provider")
		if backend == "" {
			return nil, errors.New(`anyllm entry needs options.provider (e.g., "groq", "mistral")`)
		}
		return anyllm.New(backend, entry.Model, anyllmOptions(entry)...)
	})

	reg.RegisterLLM("anthropic", func(entry config.ProviderEntry) (llm.Responder, error) {
		return anyllm.NewAnthropic(entry.Model, anyllmOptions(entry)...)
	})

	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Responder, error) {
		return anyllm.NewOllama(entry.Model, anyllmOptions(entry)...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// anyllmOptions converts the shared entry fields to any-llm-go options.
func anyllmOptions(entry config.ProviderEntry) []anyllmlib.Option {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return opts
}

// buildProviders instantiates the configured STT, TTS, and LLM providers and
// the wake engine layered on the transcriber, wrapping each provider in a
// failover group when its entry declares fallbacks. The audio slots are
// filled by the caller once the bridge is up.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	transcriber, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)
	if fbs := cfg.Providers.STT.Fallbacks; len(fbs) > 0 {
		group := resilience.NewSTTFallback(transcriber, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		for _, fb := range fbs {
			backend, err := reg.CreateSTT(fb)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, backend)
			slog.Info("fallback provider created", "kind", "stt", "name", fb.Name)
		}
		transcriber = group
	}
	ps.STT = transcriber

	synthesizer, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)
	if fbs := cfg.Providers.TTS.Fallbacks; len(fbs) > 0 {
		group := resilience.NewTTSFallback(synthesizer, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
		for _, fb := range fbs {
			backend, err := reg.CreateTTS(fb)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, backend)
			slog.Info("fallback provider created", "kind", "tts", "name", fb.Name)
		}
		synthesizer = group
	}
	ps.TTS = synthesizer

	responder, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)
	if fbs := cfg.Providers.LLM.Fallbacks; len(fbs) > 0 {
		group := resilience.NewLLMFallback(responder, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		for _, fb := range fbs {
			backend, err := reg.CreateLLM(fb)
			if err != nil {
				return nil, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
			}
			group.AddFallback(fb.Name, backend)
			slog.Info("fallback provider created", "kind", "llm", "name", fb.Name)
		}
		responder = group
	}
	ps.LLM = responder

	// The wake engine shares the command transcriber (failover included); it
	// only runs while the session is listening, so the two never contend.
	ps.Wake, err = textmatch.New(transcriber)
	if err != nil {
		return nil, fmt.Errorf("create wake engine: %w", err)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           Trae — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Voice)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	fmt.Printf("║  Wake phrase     : %-19s ║\n", cfg.Wake.Phrase)
	fmt.Printf("║  Audio bridge    : %-19s ║\n", trim(cfg.Audio.BridgeURL, 19))
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Context sources : %-19d ║\n", countAssist(cfg.Assist))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, trim(value, 19))
}

func trim(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "…"
	}
	return s
}

func countAssist(a config.AssistConfig) int {
	n := 0
	if a.Tasks != nil {
		n++
	}
	if a.Prayer != nil {
		n++
	}
	if a.Activity != nil {
		n++
	}
	return n
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optInt extracts an integer value from a provider Options map[string]any.
// YAML decodes numbers as int; returns 0 when absent or not an int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	v, ok := opts[key]
	if !ok {
		return 0
	}
	n, ok := v.(int)
	if !ok {
		return 0
	}
	return n
}
