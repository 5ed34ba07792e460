// Package app wires all SAINT subsystems into a running agent.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the HTTP API and the voice loop, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithHistoryStore, WithSpotifyClient, etc.). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/uberdiz/saint/internal/actuator"
	"github.com/uberdiz/saint/internal/api"
	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/internal/config"
	"github.com/uberdiz/saint/internal/health"
	"github.com/uberdiz/saint/internal/history"
	"github.com/uberdiz/saint/internal/profile"
	"github.com/uberdiz/saint/internal/resilience"
	"github.com/uberdiz/saint/internal/respond"
	"github.com/uberdiz/saint/internal/spotify"
	"github.com/uberdiz/saint/internal/voice"
	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/intent"
	"github.com/uberdiz/saint/pkg/provider/stt"
	"github.com/uberdiz/saint/pkg/provider/tts"
	"github.com/uberdiz/saint/pkg/provider/wake"
)

// Default paths used when the config leaves them empty.
const (
	defaultListenAddr   = "127.0.0.1:8765"
	defaultProfilePath  = "saint_profile.json"
	defaultSpotifyCache = "spotify_token.json"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM    anyllmlib.Provider
	STT    stt.Provider
	TTS    tts.Engine
	Wake   wake.Detector
	Intent intent.Recognizer
	Audio  audio.Source
}

// App owns all subsystem lifetimes and orchestrates the agent.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	profile    *profile.Store
	convo      history.Store
	spotify    *spotify.Client
	head       *actuator.Driver
	output     *voice.SpeechOutput
	llm        *respond.LLM
	dispatcher *command.Dispatcher
	loop       *voice.Loop
	server     *api.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a conversation store instead of creating one from
// config.
func WithHistoryStore(s history.Store) Option {
	return func(a *App) { a.convo = s }
}

// WithProfileStore injects a user profile store.
func WithProfileStore(s *profile.Store) Option {
	return func(a *App) { a.profile = s }
}

// WithSpotifyClient injects a Spotify client instead of building one from
// config.
func WithSpotifyClient(c *spotify.Client) Option {
	return func(a *App) { a.spotify = c }
}

// WithHeadDriver injects a head actuator driver.
func WithHeadDriver(d *actuator.Driver) Option {
	return func(a *App) { a.head = d }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. User profile ──────────────────────────────────────────────────
	if err := a.initProfile(); err != nil {
		return nil, fmt.Errorf("app: init profile: %w", err)
	}

	// ── 2. Conversation history ──────────────────────────────────────────
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	// ── 3. Spotify ───────────────────────────────────────────────────────
	a.initSpotify()

	// ── 4. Head actuators ────────────────────────────────────────────────
	if err := a.initHead(); err != nil {
		return nil, fmt.Errorf("app: init head: %w", err)
	}

	// ── 5. Speech output ─────────────────────────────────────────────────
	if providers.TTS != nil {
		a.output = voice.NewSpeechOutput(providers.TTS)
		a.closers = append(a.closers, a.output.Close)
	}

	// ── 6. Dispatcher ────────────────────────────────────────────────────
	a.initDispatcher()

	// ── 7. HTTP API ──────────────────────────────────────────────────────
	a.initServer()

	// ── 8. Voice loop ────────────────────────────────────────────────────
	a.initVoiceLoop()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initProfile opens (or creates) the persistent user profile.
func (a *App) initProfile() error {
	if a.profile != nil {
		return nil
	}
	path := a.cfg.Profile.Path
	if path == "" {
		path = defaultProfilePath
	}
	store, err := profile.Open(path)
	if err != nil {
		return err
	}
	a.profile = store
	return nil
}

// initHistory sets up the conversation store: PostgreSQL when a DSN is
// configured, otherwise a bounded in-memory ring.
func (a *App) initHistory(ctx context.Context) error {
	if a.convo != nil {
		return nil
	}

	if dsn := a.cfg.History.PostgresDSN; dsn != "" {
		store, err := history.NewPostgresStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.convo = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		slog.Info("conversation history backed by postgres")
		return nil
	}

	a.convo = history.NewMemStore(a.cfg.History.MaxTurns)
	return nil
}

// initSpotify builds the Spotify client. An unconfigured client is still
// constructed so playback actions can answer with a friendly refusal.
func (a *App) initSpotify() {
	if a.spotify != nil {
		return
	}
	cachePath := a.cfg.Spotify.TokenCachePath
	if cachePath == "" {
		cachePath = defaultSpotifyCache
	}
	var opts []spotify.Option
	if a.cfg.Spotify.RedirectURI != "" {
		opts = append(opts, spotify.WithRedirectURI(a.cfg.Spotify.RedirectURI))
	}
	a.spotify = spotify.New(a.cfg.Spotify.ClientID, a.cfg.Spotify.ClientSecret, cachePath, opts...)
}

// initHead builds the actuator driver and applies any calibration override.
func (a *App) initHead() error {
	if a.head == nil {
		a.head = actuator.New()
	}
	if path := a.cfg.Head.CalibrationPath; path != "" {
		if err := a.head.LoadCalibration(path); err != nil {
			return err
		}
	}
	return nil
}

// initDispatcher assembles the command dispatcher with both responders.
func (a *App) initDispatcher() {
	fallback := respond.NewRules(respond.WithUserName(a.profile.DisplayName))

	opts := []command.DispatcherOption{
		command.WithPlayer(a.spotify),
		command.WithHead(a.head),
		command.WithProfile(a.profile),
		command.WithFallbackResponder(fallback),
		command.WithHistory(a.convo),
	}
	if a.output != nil {
		opts = append(opts, command.WithSpeaker(a.output))
	}

	if a.providers.LLM != nil {
		primary, err := respond.NewLLM(a.providers.LLM, a.cfg.Providers.LLM.Model,
			respond.WithHistory(a.convo),
			respond.WithLLMUserName(a.profile.DisplayName),
		)
		if err != nil {
			slog.Warn("llm responder unavailable, using rules only", "error", err)
		} else {
			a.llm = primary
			opts = append(opts, command.WithResponder(primary))
		}
	}

	a.dispatcher = command.NewDispatcher(command.NewRegistry(), opts...)
}

// initServer assembles the HTTP API around the dispatcher.
func (a *App) initServer() {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	checkers := []health.Checker{
		{
			Name: "history",
			Check: func(ctx context.Context) error {
				_, err := a.convo.Recent(ctx, 1)
				return err
			},
		},
	}
	if a.llm != nil {
		checkers = append(checkers, health.Checker{
			Name: "llm",
			Check: func(context.Context) error {
				if a.llm.BreakerState() == resilience.StateOpen {
					return errors.New("chat backend breaker open")
				}
				return nil
			},
		})
	}
	if a.spotify.Configured() {
		checkers = append(checkers, health.Checker{
			Name: "spotify",
			Check: func(context.Context) error {
				if !a.spotify.Authenticated() {
					return errors.New("not authorized; visit /spotify/login")
				}
				return nil
			},
		})
	}

	opts := []api.ServerOption{api.WithHealthCheckers(checkers...)}
	if a.spotify.Configured() {
		opts = append(opts, api.WithSpotifyClient(a.spotify))
	}

	a.server = api.NewServer(addr, a.dispatcher, command.NewRegistry(), opts...)
}

// initVoiceLoop assembles the always-on pipeline when both a microphone and
// an STT provider are available.
func (a *App) initVoiceLoop() {
	if a.providers.STT == nil || a.providers.Audio == nil {
		slog.Info("voice loop disabled", "stt", a.providers.STT != nil, "audio", a.providers.Audio != nil)
		return
	}

	hub := a.server.Hub()
	onState := func(st voice.State) {
		hub.Broadcast(api.Event{Type: "state", State: string(st)})
	}

	var out voice.Output = a.output
	if a.output == nil {
		out = silentOutput{}
	}

	sessionOpts := []voice.SessionOption{
		voice.WithStateFunc(onState),
	}
	if a.providers.Intent != nil {
		sessionOpts = append(sessionOpts, voice.WithIntentRecognizer(a.providers.Intent))
	}
	if cfg := a.captureConfig(); cfg != (audio.CaptureConfig{}) {
		sessionOpts = append(sessionOpts, voice.WithCaptureConfig(cfg))
	}

	session := voice.NewSession(a.providers.Audio, a.providers.STT, out, a.dispatcher, sessionOpts...)

	loopOpts := []voice.LoopOption{
		voice.WithLoopStateFunc(onState),
	}
	if a.providers.Wake != nil {
		loopOpts = append(loopOpts, voice.WithWakeDetector(a.providers.Wake))
	}
	a.loop = voice.NewLoop(a.providers.Audio, session, loopOpts...)
	a.closers = append(a.closers, a.providers.Audio.Close)
}

// captureConfig translates the voice config section into a capture window.
// The zero value means "use the session defaults".
func (a *App) captureConfig() audio.CaptureConfig {
	var cfg audio.CaptureConfig
	if s := a.cfg.Voice.MaxCaptureSeconds; s > 0 {
		cfg.MaxDuration = time.Duration(s * float64(time.Second))
	}
	if ms := a.cfg.Voice.SilenceAfterMS; ms > 0 {
		cfg.SilenceAfter = time.Duration(ms) * time.Millisecond
	}
	if cfg.MaxDuration == 0 && cfg.SilenceAfter != 0 {
		cfg.MaxDuration = 8 * time.Second
	}
	if cfg.SilenceAfter == 0 && cfg.MaxDuration != 0 {
		cfg.SilenceAfter = 600 * time.Millisecond
	}
	return cfg
}

// silentOutput is the Output used when no TTS engine is configured. Replies
// still appear in logs and on the API, they are just never spoken.
type silentOutput struct{}

func (silentOutput) Say(text string)  { slog.Info("reply (tts disabled)", "text", text) }
func (silentOutput) Stop()            {}
func (silentOutput) IsSpeaking() bool { return false }

// ─── Accessors ───────────────────────────────────────────────────────────────

// Dispatcher returns the command dispatcher, mainly for tests and tooling.
func (a *App) Dispatcher() *command.Dispatcher {
	return a.dispatcher
}

// VoiceMode reports how the agent listens: "wake", "continuous", or "off"
// when the voice loop is unavailable.
func (a *App) VoiceMode() string {
	if a.loop == nil {
		return "off"
	}
	return string(a.loop.Mode())
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the HTTP API and, when available, the voice loop. It blocks
// until ctx is cancelled or one of the subsystems fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(ctx)
	})

	if a.loop != nil {
		g.Go(func() error {
			return a.loop.Run(ctx)
		})
	}

	slog.Info("app running", "voice_mode", a.VoiceMode())
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
