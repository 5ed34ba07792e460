package voice

import (
	"context"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/internal/observe"
	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/intent"
	intentmock "github.com/uberdiz/saint/pkg/provider/intent/mock"
	sttmock "github.com/uberdiz/saint/pkg/provider/stt/mock"
)

// eventLog records the ordering of cross-component calls.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(ev string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	copy(out, e.events)
	return out
}

// loggingOutput is an Output that records call order.
type loggingOutput struct {
	log      *eventLog
	speaking bool
}

func (o *loggingOutput) Say(text string) { o.log.add("say:" + text) }
func (o *loggingOutput) Stop()           { o.log.add("stop"); o.speaking = false }
func (o *loggingOutput) IsSpeaking() bool {
	return o.speaking
}

// loggingSource is an audio.Source that records captures.
type loggingSource struct {
	log    *eventLog
	frames []audio.Frame
}

func (s *loggingSource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	return audio.Frame{}, nil
}

func (s *loggingSource) Capture(ctx context.Context, cfg audio.CaptureConfig) (audio.Frame, error) {
	s.log.add("capture")
	if len(s.frames) == 0 {
		return audio.Frame{SampleRate: audio.DefaultSampleRate}, nil
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *loggingSource) Close() error { return nil }

// scriptedExecutor returns a canned result and records the utterance.
type scriptedExecutor struct {
	log    *eventLog
	result command.Result
	texts  []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, text string) command.Result {
	e.texts = append(e.texts, text)
	if e.log != nil {
		e.log.add("execute:" + text)
	}
	return e.result
}

func TestHandleTurnStopsSpeechBeforeCapturing(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	out := &loggingOutput{log: log, speaking: true}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"open spotify"}}
	exec := &scriptedExecutor{log: log, result: command.Result{
		Kind: command.ResultAction, Action: command.KindOpen, Summary: "Opening Spotify.",
	}}

	s := NewSession(src, sttP, out, exec)
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	events := log.all()
	want := []string{"stop", "capture", "execute:open spotify", "say:Opening Spotify."}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestHandleTurnNoStopWhenSilent(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	out := &loggingOutput{log: log, speaking: false}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"next track"}}
	exec := &scriptedExecutor{result: command.Result{
		Kind: command.ResultAction, Action: command.KindSpotifyNext, Summary: "Skipping to next track.",
	}}

	s := NewSession(src, sttP, out, exec)
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	for _, ev := range log.all() {
		if ev == "stop" {
			t.Errorf("events = %v, Stop called while not speaking", log.all())
		}
	}
}

func TestHandleTurnEmptyTranscriptSpeaksRetryPrompt(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	out := &loggingOutput{log: log}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{""}}
	exec := &scriptedExecutor{}

	s := NewSession(src, sttP, out, exec)
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if len(exec.texts) != 0 {
		t.Errorf("dispatcher invoked with %v, want nothing", exec.texts)
	}
	events := log.all()
	last := events[len(events)-1]
	if !strings.HasPrefix(last, "say:") || last == "say:" {
		t.Errorf("events = %v, want non-empty retry prompt spoken", events)
	}
}

func TestHandleTurnIntentWindowSalvagesCommand(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	out := &loggingOutput{log: log}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{""}}
	rec := &intentmock.Recognizer{Results: []intentmock.Result{
		{Inference: intent.Inference{Intent: "pause spotify"}, OK: true},
	}}
	exec := &scriptedExecutor{log: log, result: command.Result{
		Kind: command.ResultAction, Action: command.KindSpotifyPause, Summary: "Pausing Spotify.",
	}}

	s := NewSession(src, sttP, out, exec, WithIntentRecognizer(rec))
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if len(exec.texts) != 1 || exec.texts[0] != "pause spotify" {
		t.Errorf("dispatched texts = %v, want [pause spotify]", exec.texts)
	}
	// Two captures: the command window, then the intent window.
	captures := 0
	for _, ev := range log.all() {
		if ev == "capture" {
			captures++
		}
	}
	if captures != 2 {
		t.Errorf("captures = %d, want 2", captures)
	}
}

func TestHandleTurnDoesNotEchoTTSAction(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	out := &loggingOutput{log: log}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"say hello there"}}
	exec := &scriptedExecutor{result: command.Result{
		Kind: command.ResultAction, Action: command.KindTTS, Summary: "Saying: hello there",
	}}

	s := NewSession(src, sttP, out, exec)
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	for _, ev := range log.all() {
		if strings.HasPrefix(ev, "say:") {
			t.Errorf("events = %v, summary echoed for tts action", log.all())
		}
	}
}

func TestHandleTurnReportsStateTransitions(t *testing.T) {
	t.Parallel()

	var states []State
	src := &loggingSource{log: &eventLog{}}
	sttP := &sttmock.Provider{Transcripts: []string{"open spotify"}}
	exec := &scriptedExecutor{result: command.Result{
		Kind: command.ResultAction, Action: command.KindOpen, Summary: "Opening Spotify.",
	}}

	s := NewSession(src, sttP, &loggingOutput{log: &eventLog{}}, exec,
		WithStateFunc(func(st State) { states = append(states, st) }))
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	want := []State{StateCapturing, StateProcessing, StateSpeaking, StateAwaitingWake}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestHandleTurnRecordsPipelineMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	log := &eventLog{}
	src := &loggingSource{log: log}
	sttP := &sttmock.Provider{Transcripts: []string{"open spotify"}}
	exec := &scriptedExecutor{result: command.Result{
		Kind: command.ResultAction, Action: command.KindOpen, Summary: "Opening Spotify.",
	}}

	s := NewSession(src, sttP, &loggingOutput{log: log}, exec, WithSessionMetrics(metrics))
	if err := s.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	recorded := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			recorded[m.Name] = true
		}
	}
	for _, name := range []string{"saint.capture.duration", "saint.stt.duration", "saint.turn.duration"} {
		if !recorded[name] {
			t.Errorf("metric %s not recorded; got %v", name, recorded)
		}
	}
}
