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
	"llm":    {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":    {"openai", "whisper"},
	"tts":    {"espeak"},
	"wake":   {"phonetic"},
	"intent": {"keyword"},
	"audio":  {"portaudio"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("wake", cfg.Providers.Wake.Name)
	validateProviderName("intent", cfg.Providers.Intent.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	// Voice pipeline cross-checks.
	if cfg.Providers.Wake.Name != "" && cfg.Voice.WakePhrase == "" {
		errs = append(errs, fmt.Errorf("voice.wake_phrase is required when providers.wake is configured"))
	}
	if cfg.Voice.WakeThreshold < 0 || cfg.Voice.WakeThreshold > 1 {
		errs = append(errs, fmt.Errorf("voice.wake_threshold %.2f is out of range [0, 1]", cfg.Voice.WakeThreshold))
	}
	if cfg.Voice.MaxCaptureSeconds < 0 || cfg.Voice.MaxCaptureSeconds > 60 {
		errs = append(errs, fmt.Errorf("voice.max_capture_seconds %.1f is out of range [0, 60]", cfg.Voice.MaxCaptureSeconds))
	}
	if cfg.Voice.SilenceAfterMS < 0 {
		errs = append(errs, fmt.Errorf("voice.silence_after_ms must not be negative"))
	}

	// Provider availability warnings.
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; the voice loop will be unavailable and only the HTTP API will accept commands")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; chat replies will use built-in rules only")
	}

	// Spotify credentials come as a pair.
	if (cfg.Spotify.ClientID == "") != (cfg.Spotify.ClientSecret == "") {
		errs = append(errs, fmt.Errorf("spotify.client_id and spotify.client_secret must be set together"))
	}
	if cfg.Spotify.ClientID == "" {
		slog.Warn("spotify credentials not configured; playback actions will report a friendly refusal")
	}

	// History
	if cfg.History.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("history.max_turns must not be negative"))
	}

	return errors.Join(errs...)
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
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
