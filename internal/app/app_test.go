package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/internal/config"
	"github.com/uberdiz/saint/pkg/audio"
	sttmock "github.com/uberdiz/saint/pkg/provider/stt/mock"
	ttsmock "github.com/uberdiz/saint/pkg/provider/tts/mock"
	wakemock "github.com/uberdiz/saint/pkg/provider/wake/mock"
)

// idleSource is an audio.Source that blocks until its context is cancelled.
type idleSource struct{}

func (idleSource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	<-ctx.Done()
	return audio.Frame{}, ctx.Err()
}

func (idleSource) Capture(ctx context.Context, _ audio.CaptureConfig) (audio.Frame, error) {
	<-ctx.Done()
	return audio.Frame{}, ctx.Err()
}

func (idleSource) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Profile: config.ProfileConfig{Path: filepath.Join(dir, "profile.json")},
		Spotify: config.SpotifyConfig{TokenCachePath: filepath.Join(dir, "spotify.json")},
	}
}

func TestNewWithoutProvidersRunsAPIOnly(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), &Providers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.VoiceMode() != "off" {
		t.Errorf("VoiceMode() = %q, want off", a.VoiceMode())
	}
	if a.Dispatcher() == nil {
		t.Fatal("Dispatcher() = nil")
	}

	// The dispatcher must be fully wired: an unknown utterance falls back to
	// the rules responder instead of panicking on nil collaborators.
	res := a.Dispatcher().Execute(context.Background(), "tell me something")
	if res.Kind != command.ResultChat {
		t.Errorf("result kind = %q, want chat", res.Kind)
	}
	if res.Summary == "" {
		t.Error("chat reply is empty")
	}
}

func TestNewContinuousModeWithoutWake(t *testing.T) {
	t.Parallel()

	providers := &Providers{
		STT:   &sttmock.Provider{},
		TTS:   &ttsmock.Engine{},
		Audio: idleSource{},
	}
	a, err := New(context.Background(), testConfig(t), providers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.VoiceMode() != "continuous" {
		t.Errorf("VoiceMode() = %q, want continuous", a.VoiceMode())
	}
}

func TestNewWakeModeWithDetector(t *testing.T) {
	t.Parallel()

	providers := &Providers{
		STT:   &sttmock.Provider{},
		TTS:   &ttsmock.Engine{},
		Wake:  &wakemock.Detector{},
		Audio: idleSource{},
	}
	a, err := New(context.Background(), testConfig(t), providers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.VoiceMode() != "wake" {
		t.Errorf("VoiceMode() = %q, want wake", a.VoiceMode())
	}
}

func TestCaptureConfigFromYAMLValues(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Voice.MaxCaptureSeconds = 10
	cfg.Voice.SilenceAfterMS = 400

	a, err := New(context.Background(), cfg, &Providers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	got := a.captureConfig()
	if got.MaxDuration != 10*time.Second {
		t.Errorf("MaxDuration = %v, want 10s", got.MaxDuration)
	}
	if got.SilenceAfter != 400*time.Millisecond {
		t.Errorf("SilenceAfter = %v, want 400ms", got.SilenceAfter)
	}
}

func TestCaptureConfigDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), &Providers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if got := a.captureConfig(); got != (audio.CaptureConfig{}) {
		t.Errorf("captureConfig() = %+v, want zero value", got)
	}
}

func TestReadinessReportsHistoryCheck(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), &Providers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	srv := httptest.NewServer(a.server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"history":"ok"`) {
		t.Errorf("body = %s, want history check ok", body)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), &Providers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
