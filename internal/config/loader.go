package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"vosk", "whisper"},
	"tts": {"kokoro"},
	"llm": {"openai", "anyllm", "anthropic", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Audio
	if cfg.Audio.BridgeURL == "" {
		errs = append(errs, errors.New("audio.bridge_url is required"))
	}

	// Wake
	if cfg.Wake.Threshold < 0 || cfg.Wake.Threshold > 1 {
		errs = append(errs, fmt.Errorf("wake.threshold %.2f is out of range [0, 1]", cfg.Wake.Threshold))
	}

	// VAD
	if cfg.VAD.VoiceThreshold < 0 || cfg.VAD.VoiceThreshold > 1 {
		errs = append(errs, fmt.Errorf("vad.voice_threshold %.3f is out of range [0, 1]", cfg.VAD.VoiceThreshold))
	}
	if cfg.VAD.SilenceFrames < 0 {
		errs = append(errs, fmt.Errorf("vad.silence_frames %d must not be negative", cfg.VAD.SilenceFrames))
	}

	// Provider name validation warns for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateFallbacks("stt", cfg.Providers.STT, &errs)
	validateFallbacks("tts", cfg.Providers.TTS, &errs)
	validateFallbacks("llm", cfg.Providers.LLM, &errs)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}

	// History availability
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; interactions will not be persisted")
		if cfg.Assist.Activity != nil {
			errs = append(errs, errors.New("assist.activity requires history.postgres_dsn"))
		}
	}

	// Context providers
	if t := cfg.Assist.Tasks; t != nil {
		if (t.Command == "") == (t.URL == "") {
			errs = append(errs, errors.New("assist.tasks requires exactly one of command and url"))
		}
	}
	if p := cfg.Assist.Prayer; p != nil {
		if p.City == "" || p.Country == "" {
			errs = append(errs, errors.New("assist.prayer requires both city and country"))
		}
	}
	if a := cfg.Assist.Activity; a != nil && a.Limit < 0 {
		errs = append(errs, fmt.Errorf("assist.activity.limit %d must not be negative", a.Limit))
	}

	return errors.Join(errs...)
}

// validateFallbacks checks the fallback entries of one provider kind: every
// fallback needs a name and fallbacks may not nest.
func validateFallbacks(kind string, entry ProviderEntry, errs *[]error) {
	for i, fb := range entry.Fallbacks {
		if fb.Name == "" {
			*errs = append(*errs, fmt.Errorf("providers.%s.fallbacks[%d].name is required", kind, i))
			continue
		}
		validateProviderName(kind, fb.Name)
		if len(fb.Fallbacks) > 0 {
			*errs = append(*errs, fmt.Errorf("providers.%s.fallbacks[%d] must not declare further fallbacks", kind, i))
		}
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
