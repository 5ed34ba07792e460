package config_test

import (
	"strings"
	"testing"

	"github.com/uberdiz/saint/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: "127.0.0.1:8765"
  log_level: debug
providers:
  llm:
    name: openai
    model: gpt-4o-mini
  stt:
    name: whisper
    model: models/ggml-base.en.bin
  tts:
    name: espeak
  wake:
    name: phonetic
  intent:
    name: keyword
  audio:
    name: portaudio
voice:
  wake_phrase: "hey saint"
  wake_threshold: 0.8
  max_capture_seconds: 10
  silence_after_ms: 500
spotify:
  client_id: abc
  client_secret: def
  token_cache_path: /tmp/spotify.json
profile:
  path: /tmp/profile.json
history:
  postgres_dsn: "postgres://localhost/saint"
  max_turns: 200
head:
  enabled: true
  calibration_path: /tmp/servos.json
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:8765" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Voice.WakePhrase != "hey saint" {
		t.Errorf("wake_phrase = %q", cfg.Voice.WakePhrase)
	}
	if cfg.Providers.STT.Model != "models/ggml-base.en.bin" {
		t.Errorf("stt model = %q", cfg.Providers.STT.Model)
	}
	if !cfg.Head.Enabled {
		t.Error("head.enabled = false, want true")
	}
	if cfg.History.MaxTurns != 200 {
		t.Errorf("history.max_turns = %d", cfg.History.MaxTurns)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WakeProviderRequiresPhrase(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  wake:
    name: phonetic
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for wake provider without phrase, got nil")
	}
	if !strings.Contains(err.Error(), "wake_phrase") {
		t.Errorf("error should mention wake_phrase, got: %v", err)
	}
}

func TestValidate_WakeThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  wake_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range threshold, got nil")
	}
	if !strings.Contains(err.Error(), "wake_threshold") {
		t.Errorf("error should mention wake_threshold, got: %v", err)
	}
}

func TestValidate_SpotifyCredentialsComeInPairs(t *testing.T) {
	t.Parallel()
	yaml := `
spotify:
  client_id: abc
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for lone client_id, got nil")
	}
	if !strings.Contains(err.Error(), "client_secret") {
		t.Errorf("error should mention client_secret, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
voice:
  wake_threshold: -1
  silence_after_ms: -5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") || !strings.Contains(errStr, "wake_threshold") {
		t.Errorf("error should join all failures, got: %v", err)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_adress: ":8080"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	sttNames := config.ValidProviderNames["stt"]
	if len(sttNames) == 0 {
		t.Fatal("ValidProviderNames[\"stt\"] should not be empty")
	}
	found := false
	for _, n := range sttNames {
		if n == "whisper" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"stt\"] should contain \"whisper\"")
	}
}
