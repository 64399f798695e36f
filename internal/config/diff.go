package config

import "reflect"

// ConfigDiff describes what changed between two configs, split into changes
// that can be applied to a running session and changes that need a restart.
type ConfigDiff struct {
	// LogLevelChanged reports a new log level; hot-reloadable.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// WakeChanged reports a new wake phrase or threshold; hot-reloadable.
	WakeChanged bool

	// VADChanged reports new voice-activity tuning; hot-reloadable.
	VADChanged bool

	// VoiceChanged reports a new synthesis voice; hot-reloadable.
	VoiceChanged bool
	NewVoice     string

	// RestartRequired reports changes outside the hot-reloadable set:
	// audio transport, provider selection, server address, history DSN, or
	// context providers.
	RestartRequired bool
}

// SettingsChanged reports whether any hot-reloadable session setting changed.
func (d ConfigDiff) SettingsChanged() bool {
	return d.WakeChanged || d.VADChanged || d.VoiceChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Wake != new.Wake {
		d.WakeChanged = true
	}
	if old.VAD != new.VAD {
		d.VADChanged = true
	}
	if old.Providers.TTS.Voice != new.Providers.TTS.Voice {
		d.VoiceChanged = true
		d.NewVoice = new.Providers.TTS.Voice
	}

	if old.Audio != new.Audio {
		d.RestartRequired = true
	}
	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = true
	}
	if old.History != new.History {
		d.RestartRequired = true
	}
	if !sameProviderSelection(old.Providers, new.Providers) {
		d.RestartRequired = true
	}
	if !sameAssist(old.Assist, new.Assist) {
		d.RestartRequired = true
	}

	return d
}

// sameProviderSelection compares provider entries ignoring the TTS voice,
// which reloads without a restart.
func sameProviderSelection(old, new ProvidersConfig) bool {
	old.TTS.Voice = ""
	new.TTS.Voice = ""
	return sameEntry(old.STT, new.STT) && sameEntry(old.TTS, new.TTS) && sameEntry(old.LLM, new.LLM)
}

// sameEntry compares two provider entries. Options may hold nested maps
// from the YAML decoder, so they and the fallback chain are compared
// structurally.
func sameEntry(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model || a.Voice != b.Voice {
		return false
	}
	if !reflect.DeepEqual(a.Options, b.Options) {
		return false
	}
	return reflect.DeepEqual(a.Fallbacks, b.Fallbacks)
}

func sameAssist(a, b AssistConfig) bool {
	switch {
	case (a.Tasks == nil) != (b.Tasks == nil),
		(a.Prayer == nil) != (b.Prayer == nil),
		(a.Activity == nil) != (b.Activity == nil):
		return false
	}
	if a.Tasks != nil && *a.Tasks != *b.Tasks {
		return false
	}
	if a.Prayer != nil && *a.Prayer != *b.Prayer {
		return false
	}
	if a.Activity != nil && *a.Activity != *b.Activity {
		return false
	}
	return true
}
