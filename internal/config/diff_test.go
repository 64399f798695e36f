package config

import (
	"strings"
	"testing"
)

func loadedConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	old := loadedConfig(t)
	new := loadedConfig(t)

	d := Diff(old, new)
	if d != (ConfigDiff{}) {
		t.Errorf("Diff() = %+v, want zero diff", d)
	}
	if d.SettingsChanged() {
		t.Error("SettingsChanged() = true for identical configs")
	}
}

func TestDiff_HotReloadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, ConfigDiff)
	}{
		{
			name:   "wake phrase",
			mutate: func(c *Config) { c.Wake.Phrase = "jarvis" },
			check: func(t *testing.T, d ConfigDiff) {
				if !d.WakeChanged {
					t.Error("WakeChanged = false")
				}
			},
		},
		{
			name:   "vad threshold",
			mutate: func(c *Config) { c.VAD.VoiceThreshold = 0.02 },
			check: func(t *testing.T, d ConfigDiff) {
				if !d.VADChanged {
					t.Error("VADChanged = false")
				}
			},
		},
		{
			name:   "silence frames",
			mutate: func(c *Config) { c.VAD.SilenceFrames = 40 },
			check: func(t *testing.T, d ConfigDiff) {
				if !d.VADChanged {
					t.Error("VADChanged = false")
				}
			},
		},
		{
			name:   "tts voice",
			mutate: func(c *Config) { c.Providers.TTS.Voice = "af_bella" },
			check: func(t *testing.T, d ConfigDiff) {
				if !d.VoiceChanged || d.NewVoice != "af_bella" {
					t.Errorf("VoiceChanged = %v, NewVoice = %q", d.VoiceChanged, d.NewVoice)
				}
			},
		},
		{
			name:   "log level",
			mutate: func(c *Config) { c.Server.LogLevel = LogDebug },
			check: func(t *testing.T, d ConfigDiff) {
				if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
					t.Errorf("LogLevelChanged = %v, NewLogLevel = %q", d.LogLevelChanged, d.NewLogLevel)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old := loadedConfig(t)
			new := loadedConfig(t)
			tt.mutate(new)

			d := Diff(old, new)
			tt.check(t, d)
			if d.RestartRequired {
				t.Errorf("RestartRequired = true for a hot-reloadable change: %+v", d)
			}
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bridge url", mutate: func(c *Config) { c.Audio.BridgeURL = "ws://other:9002" }},
		{name: "listen addr", mutate: func(c *Config) { c.Server.ListenAddr = ":9090" }},
		{name: "stt provider", mutate: func(c *Config) { c.Providers.STT.Name = "whisper" }},
		{name: "llm model", mutate: func(c *Config) { c.Providers.LLM.Model = "gpt-4o" }},
		{name: "history dsn", mutate: func(c *Config) { c.History.PostgresDSN = "" }},
		{name: "prayer city", mutate: func(c *Config) { c.Assist.Prayer.City = "Irbid" }},
		{name: "tasks removed", mutate: func(c *Config) { c.Assist.Tasks = nil }},
		{name: "fallback added", mutate: func(c *Config) {
			c.Providers.LLM.Fallbacks = append(c.Providers.LLM.Fallbacks, ProviderEntry{Name: "ollama", Model: "llama3"})
		}},
		{name: "fallback removed", mutate: func(c *Config) { c.Providers.STT.Fallbacks = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old := loadedConfig(t)
			new := loadedConfig(t)
			tt.mutate(new)

			if d := Diff(old, new); !d.RestartRequired {
				t.Errorf("RestartRequired = false, diff = %+v", d)
			}
		})
	}
}

func TestDiff_VoiceOnlyDoesNotForceRestart(t *testing.T) {
	t.Parallel()

	old := loadedConfig(t)
	new := loadedConfig(t)
	new.Providers.TTS.Voice = "af_bella"

	d := Diff(old, new)
	if d.RestartRequired {
		t.Error("changing only the synthesis voice must not require a restart")
	}
	if !d.SettingsChanged() {
		t.Error("SettingsChanged() = false after a voice change")
	}
}
