package main

import (
	"log/slog"
	"testing"

	"github.com/uberdiz/saint/internal/config"
)

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	cases := map[config.LogLevel]slog.Level{
		config.LogDebug:        slog.LevelDebug,
		config.LogInfo:         slog.LevelInfo,
		config.LogWarn:         slog.LevelWarn,
		config.LogError:        slog.LevelError,
		config.LogLevel(""):    slog.LevelInfo,
		config.LogLevel("???"): slog.LevelInfo,
	}
	for in, want := range cases {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestApplyConfigChangeUpdatesLogLevel(t *testing.T) {
	t.Parallel()

	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)

	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	cur := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}
	applyConfigChange(lv, old, cur)

	if got := lv.Level(); got != slog.LevelDebug {
		t.Errorf("level after reload = %v, want debug", got)
	}
}

func TestApplyConfigChangeIgnoresUnrelatedEdits(t *testing.T) {
	t.Parallel()

	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)

	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogWarn}}
	cur := &config.Config{Server: config.ServerConfig{LogLevel: config.LogWarn}}
	cur.Voice.WakePhrase = "okay saint"
	applyConfigChange(lv, old, cur)

	if got := lv.Level(); got != slog.LevelWarn {
		t.Errorf("level after unrelated edit = %v, want warn", got)
	}
}
