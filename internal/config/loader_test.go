package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
audio:
  bridge_url: "ws://127.0.0.1:9002/audio"
wake:
  phrase: assistant
  threshold: 0.75
vad:
  voice_threshold: 0.01
  silence_frames: 30
providers:
  stt:
    name: vosk
    base_url: "ws://127.0.0.1:2700"
    fallbacks:
      - name: whisper
        options:
          model_path: "/models/ggml-base.en.bin"
  tts:
    name: kokoro
    base_url: "http://127.0.0.1:8880"
    voice: af_heart
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
history:
  postgres_dsn: "postgres://assistant@localhost:5432/assistant"
assist:
  tasks:
    url: "http://127.0.0.1:3001/mcp"
  prayer:
    city: Amman
    country: Jordan
    method: 4
  activity:
    limit: 5
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Wake.Phrase != "assistant" || cfg.Wake.Threshold != 0.75 {
		t.Errorf("Wake = %+v", cfg.Wake)
	}
	if cfg.VAD.SilenceFrames != 30 {
		t.Errorf("SilenceFrames = %d", cfg.VAD.SilenceFrames)
	}
	if cfg.Providers.TTS.Voice != "af_heart" {
		t.Errorf("TTS voice = %q", cfg.Providers.TTS.Voice)
	}
	if cfg.Assist.Prayer == nil || cfg.Assist.Prayer.Method != 4 {
		t.Errorf("Prayer = %+v", cfg.Assist.Prayer)
	}
	if fbs := cfg.Providers.STT.Fallbacks; len(fbs) != 1 || fbs[0].Name != "whisper" {
		t.Errorf("STT fallbacks = %+v", fbs)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yaml := strings.Replace(validYAML, "wake:", "wakeword_stuff: true\nwake:", 1)
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("LoadFromReader() error = nil, want unknown-field error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		cfg, err := LoadFromReader(strings.NewReader(validYAML))
		if err != nil {
			t.Fatalf("base config is invalid: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "server.log_level",
		},
		{
			name:    "missing bridge url",
			mutate:  func(c *Config) { c.Audio.BridgeURL = "" },
			wantErr: "audio.bridge_url",
		},
		{
			name:    "wake threshold out of range",
			mutate:  func(c *Config) { c.Wake.Threshold = 1.5 },
			wantErr: "wake.threshold",
		},
		{
			name:    "negative silence frames",
			mutate:  func(c *Config) { c.VAD.SilenceFrames = -1 },
			wantErr: "vad.silence_frames",
		},
		{
			name:    "missing stt provider",
			mutate:  func(c *Config) { c.Providers.STT.Name = "" },
			wantErr: "providers.stt.name",
		},
		{
			name: "fallback without name",
			mutate: func(c *Config) {
				c.Providers.LLM.Fallbacks = []ProviderEntry{{Model: "llama3"}}
			},
			wantErr: "providers.llm.fallbacks[0].name",
		},
		{
			name: "nested fallbacks",
			mutate: func(c *Config) {
				c.Providers.STT.Fallbacks[0].Fallbacks = []ProviderEntry{{Name: "vosk"}}
			},
			wantErr: "providers.stt.fallbacks[0]",
		},
		{
			name: "tasks with both transports",
			mutate: func(c *Config) {
				c.Assist.Tasks = &TasksConfig{Command: "mcp-tasks", URL: "http://x/mcp"}
			},
			wantErr: "assist.tasks",
		},
		{
			name:    "prayer without country",
			mutate:  func(c *Config) { c.Assist.Prayer.Country = "" },
			wantErr: "assist.prayer",
		},
		{
			name: "activity without history",
			mutate: func(c *Config) {
				c.History.PostgresDSN = ""
			},
			wantErr: "assist.activity",
		},
		{
			name:    "tls without key",
			mutate:  func(c *Config) { c.Server.TLS = &TLSConfig{CertFile: "cert.pem"} },
			wantErr: "server.tls",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  slog.Level
	}{
		{LogDebug, slog.LevelDebug},
		{LogInfo, slog.LevelInfo},
		{LogWarn, slog.LevelWarn},
		{LogError, slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.level.SlogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q).SlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/assistant.yaml")
	if err == nil {
		t.Fatal("Load() error = nil, want open error")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil for empty config")
	}
	for _, want := range []string{"audio.bridge_url", "providers.stt.name", "providers.tts.name", "providers.llm.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
	if errors.Is(err, ErrProviderNotRegistered) {
		t.Error("validation must not surface registry errors")
	}
}
