package voice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/pkg/audio"
	sttmock "github.com/uberdiz/saint/pkg/provider/stt/mock"
	wakemock "github.com/uberdiz/saint/pkg/provider/wake/mock"
)

// countingExecutor counts dispatches and cancels ctx after n of them, so a
// test can let the loop spin freely and still terminate it.
type countingExecutor struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	after  int
	texts  []string
	result command.Result
}

func (e *countingExecutor) Execute(ctx context.Context, text string) command.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if len(e.texts) >= e.after {
		e.cancel()
	}
	return e.result
}

func (e *countingExecutor) dispatched() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.texts))
	copy(out, e.texts)
	return out
}

// flakySource fails its first Capture and succeeds afterwards.
type flakySource struct {
	mu     sync.Mutex
	failed bool
}

func (s *flakySource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	return audio.Frame{SampleRate: audio.DefaultSampleRate}, nil
}

func (s *flakySource) Capture(ctx context.Context, cfg audio.CaptureConfig) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		s.failed = true
		return audio.Frame{}, errors.New("device busy")
	}
	return audio.Frame{SampleRate: audio.DefaultSampleRate}, nil
}

func (s *flakySource) Close() error { return nil }

func TestLoopModeSelection(t *testing.T) {
	t.Parallel()

	src := &loggingSource{log: &eventLog{}}
	session := NewSession(src, &sttmock.Provider{}, &loggingOutput{log: &eventLog{}}, &scriptedExecutor{})

	if got := NewLoop(src, session).Mode(); got != ModeContinuous {
		t.Errorf("Mode() without detector = %q, want %q", got, ModeContinuous)
	}
	withWake := NewLoop(src, session, WithWakeDetector(&wakemock.Detector{}))
	if got := withWake.Mode(); got != ModeWake {
		t.Errorf("Mode() with detector = %q, want %q", got, ModeWake)
	}
}

func TestLoopWakeDetectionTriggersTurn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"open spotify"}}
	det := &wakemock.Detector{Detections: []bool{false, false, true}}
	exec := &countingExecutor{cancel: cancel, after: 1, result: command.Result{
		Kind: command.ResultAction, Action: command.KindOpen, Summary: "Opening Spotify.",
	}}

	session := NewSession(src, sttP, &loggingOutput{log: log}, exec)
	loop := NewLoop(src, session, WithWakeDetector(det))

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := exec.dispatched(); len(got) < 1 || got[0] != "open spotify" {
		t.Errorf("dispatched = %v, want [open spotify]", got)
	}
	if det.CallCountProcess < 3 {
		t.Errorf("Process calls = %d, want >= 3", det.CallCountProcess)
	}
	if det.CallCountReset < 1 {
		t.Errorf("Reset calls = %d, want >= 1", det.CallCountReset)
	}
}

func TestLoopContinuousModeDispatchesEveryUtterance(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"pause spotify", "resume spotify"}}
	exec := &countingExecutor{cancel: cancel, after: 2, result: command.Result{
		Kind: command.ResultAction, Action: command.KindSpotifyPause, Summary: "Pausing Spotify.",
	}}

	session := NewSession(src, sttP, &loggingOutput{log: log}, exec)
	loop := NewLoop(src, session)

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := exec.dispatched()
	if len(got) < 2 || got[0] != "pause spotify" || got[1] != "resume spotify" {
		t.Errorf("dispatched = %v, want [pause spotify resume spotify]", got)
	}
}

func TestLoopSurvivesFailedTurn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &flakySource{}
	sttP := &sttmock.Provider{Transcripts: []string{"next track"}}
	exec := &countingExecutor{cancel: cancel, after: 1, result: command.Result{
		Kind: command.ResultAction, Action: command.KindSpotifyNext, Summary: "Skipping to next track.",
	}}

	session := NewSession(src, sttP, &loggingOutput{log: &eventLog{}}, exec)
	loop := NewLoop(src, session)

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := exec.dispatched(); len(got) != 1 || got[0] != "next track" {
		t.Errorf("dispatched = %v, want [next track]", got)
	}
}

func TestLoopRunReturnsNilOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &loggingSource{log: &eventLog{}}
	session := NewSession(src, &sttmock.Provider{}, &loggingOutput{log: &eventLog{}}, &scriptedExecutor{})

	if err := NewLoop(src, session).Run(ctx); err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
}

func TestLoopWithoutSessionFails(t *testing.T) {
	t.Parallel()

	loop := NewLoop(&loggingSource{log: &eventLog{}}, nil)
	if err := loop.Run(context.Background()); !errors.Is(err, ErrNoVoiceBackend) {
		t.Errorf("Run() error = %v, want ErrNoVoiceBackend", err)
	}
}
