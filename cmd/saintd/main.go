// Command saintd is the main entry point for the SAINT voice agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/uberdiz/saint/internal/app"
	"github.com/uberdiz/saint/internal/config"
	"github.com/uberdiz/saint/internal/observe"
	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/audio/portaudio"
	"github.com/uberdiz/saint/pkg/provider/intent"
	"github.com/uberdiz/saint/pkg/provider/intent/keyword"
	"github.com/uberdiz/saint/pkg/provider/stt"
	sttopenai "github.com/uberdiz/saint/pkg/provider/stt/openai"
	"github.com/uberdiz/saint/pkg/provider/stt/whisper"
	"github.com/uberdiz/saint/pkg/provider/tts"
	"github.com/uberdiz/saint/pkg/provider/tts/espeak"
	"github.com/uberdiz/saint/pkg/provider/wake"
	"github.com/uberdiz/saint/pkg/provider/wake/phonetic"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "saintd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "saintd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("saint starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "saint",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
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

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, cur *config.Config) {
		applyConfigChange(logLevel, old, cur)
	})
	if err != nil {
		slog.Warn("config hot-reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("agent ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
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

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
//
// Wake and intent factories are registered later by registerVoiceProviders,
// because both are layered on top of the constructed STT provider.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// All any-llm-go backends share the same pattern: optional APIKey +
	// optional BaseURL, with environment-variable fallback for the key.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (anyllmlib.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return createLLMBackend(providerName, opts...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, sttopenai.WithModel(entry.Model))
		}
		return sttopenai.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("espeak", func(entry config.ProviderEntry) (tts.Engine, error) {
		var opts []espeak.Option
		if bin := optString(entry.Options, "binary"); bin != "" {
			opts = append(opts, espeak.WithBinary(bin))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, espeak.WithVoice(voice))
		}
		if rate := optInt(entry.Options, "rate"); rate > 0 {
			opts = append(opts, espeak.WithRate(rate))
		}
		return espeak.New(opts...)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio("portaudio", func(entry config.ProviderEntry) (audio.Source, error) {
		var opts []portaudio.Option
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, portaudio.WithSampleRate(rate))
		}
		return portaudio.Open(opts...)
	})
}

// registerVoiceProviders registers the wake and intent factories, which wrap
// the already-built STT provider.
func registerVoiceProviders(reg *config.Registry, cfg *config.Config, sttP stt.Provider) {
	reg.RegisterWake("phonetic", func(entry config.ProviderEntry) (wake.Detector, error) {
		var opts []phonetic.Option
		if cfg.Voice.WakeThreshold > 0 {
			opts = append(opts, phonetic.WithFuzzyThreshold(cfg.Voice.WakeThreshold))
		}
		return phonetic.New(sttP, cfg.Voice.WakePhrase, opts...), nil
	})

	reg.RegisterIntent("keyword", func(entry config.ProviderEntry) (intent.Recognizer, error) {
		return keyword.New(sttP, keyword.DefaultIntents()), nil
	})
}

// createLLMBackend creates the underlying any-llm-go provider for the given
// provider name.
func createLLMBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.LLM = p
			slog.Info("provider created", "kind", "llm", "name", name)
		}
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "stt", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		} else {
			ps.STT = p
			slog.Info("provider created", "kind", "stt", "name", name)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "tts", "name", name)
		} else if err != nil {
			// A missing espeak binary should not take down the API; replies
			// will be logged instead of spoken.
			slog.Warn("tts provider unavailable, continuing without speech", "name", name, "err", err)
		} else {
			ps.TTS = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	// Wake and intent wrap the STT provider, so they can only exist once STT
	// is built.
	if ps.STT != nil {
		registerVoiceProviders(reg, cfg, ps.STT)

		if name := cfg.Providers.Wake.Name; name != "" {
			p, err := reg.CreateWake(cfg.Providers.Wake)
			if errors.Is(err, config.ErrProviderNotRegistered) {
				slog.Debug("provider not yet implemented — skipping", "kind", "wake", "name", name)
			} else if err != nil {
				return nil, fmt.Errorf("create wake provider %q: %w", name, err)
			} else {
				ps.Wake = p
				slog.Info("provider created", "kind", "wake", "name", name, "phrase", cfg.Voice.WakePhrase)
			}
		}

		if name := cfg.Providers.Intent.Name; name != "" {
			p, err := reg.CreateIntent(cfg.Providers.Intent)
			if errors.Is(err, config.ErrProviderNotRegistered) {
				slog.Debug("provider not yet implemented — skipping", "kind", "intent", "name", name)
			} else if err != nil {
				return nil, fmt.Errorf("create intent provider %q: %w", name, err)
			} else {
				ps.Intent = p
				slog.Info("provider created", "kind", "intent", "name", name)
			}
		}
	}

	if name := cfg.Providers.Audio.Name; name != "" {
		p, err := reg.CreateAudio(cfg.Providers.Audio)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "audio", "name", name)
		} else if err != nil {
			// No microphone is a degraded mode, not a fatal one.
			slog.Warn("audio source unavailable, voice loop disabled", "name", name, "err", err)
		} else {
			ps.Audio = p
			slog.Info("provider created", "kind", "audio", "name", name)
		}
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          SAINT — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, "")
	printProvider("Wake", cfg.Providers.Wake.Name, "")
	printProvider("Intent", cfg.Providers.Intent.Name, "")
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	if cfg.Spotify.ClientID != "" {
		fmt.Printf("║  Spotify         : %-19s ║\n", "configured")
	} else {
		fmt.Printf("║  Spotify         : %-19s ║\n", "(disabled)")
	}
	if cfg.Head.Enabled {
		fmt.Printf("║  Head            : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Head            : %-19s ║\n", "(disabled)")
	}
	if cfg.Voice.WakePhrase != "" {
		fmt.Printf("║  Wake phrase     : %-19s ║\n", cfg.Voice.WakePhrase)
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets a config
// reload raise or lower verbosity without restarting.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})), lv
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyConfigChange applies what can be hot-reloaded from a config edit and
// names what needs a restart. Provider wiring is fixed at startup, so wake,
// Spotify, and head changes only take effect on the next run.
func applyConfigChange(lv *slog.LevelVar, old, cur *config.Config) {
	d := config.Diff(old, cur)
	if !d.Any() {
		return
	}
	if d.LogLevelChanged {
		lv.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.WakePhraseChanged || d.SpotifyChanged || d.HeadChanged {
		slog.Warn("config change needs a restart to take effect",
			"wake", d.WakePhraseChanged,
			"spotify", d.SpotifyChanged,
			"head", d.HeadChanged)
	}
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

// optInt extracts an int value from a provider Options map[string]any.
// YAML decodes numbers as int, so only that case is handled.
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
