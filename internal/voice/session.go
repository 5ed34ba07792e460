package voice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/uberdiz/saint/internal/command"
	"github.com/uberdiz/saint/internal/observe"
	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/intent"
	"github.com/uberdiz/saint/pkg/provider/stt"
)

// retryPrompt is spoken when a wake trigger yields no usable command.
const retryPrompt = "I heard you, but I didn't catch the command. Try again."

// Capture windows. The intent window is shorter: it only needs a terse
// follow-up like "pause" or "next".
var (
	defaultCaptureConfig = audio.CaptureConfig{
		MaxDuration:  8 * time.Second,
		SilenceAfter: 600 * time.Millisecond,
	}
	intentCaptureConfig = audio.CaptureConfig{
		MaxDuration:  4 * time.Second,
		SilenceAfter: 600 * time.Millisecond,
	}
)

// Executor dispatches one utterance. Implemented by [command.Dispatcher].
type Executor interface {
	Execute(ctx context.Context, text string) command.Result
}

// Output is the speech side of a session. Implemented by [SpeechOutput].
type Output interface {
	Say(text string)
	Stop()
	IsSpeaking() bool
}

// Session handles one voice turn: interrupt, capture, transcribe, dispatch,
// reply. Safe for sequential reuse by a single loop.
type Session struct {
	log      *slog.Logger
	source   audio.Source
	sttP     stt.Provider
	intents  intent.Recognizer
	out      Output
	dispatch Executor

	capture audio.CaptureConfig
	onState func(State)
	metrics *observe.Metrics
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithSessionLogger attaches a logger. Default is slog.Default().
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithIntentRecognizer enables the intent fallback window used when free
// transcription comes back empty.
func WithIntentRecognizer(r intent.Recognizer) SessionOption {
	return func(s *Session) { s.intents = r }
}

// WithCaptureConfig overrides the command capture window.
func WithCaptureConfig(cfg audio.CaptureConfig) SessionOption {
	return func(s *Session) { s.capture = cfg }
}

// WithStateFunc registers a callback invoked on every state change.
func WithStateFunc(fn func(State)) SessionOption {
	return func(s *Session) { s.onState = fn }
}

// WithSessionMetrics replaces the default pipeline metrics.
func WithSessionMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewSession constructs a Session.
func NewSession(source audio.Source, sttP stt.Provider, out Output, dispatch Executor, opts ...SessionOption) *Session {
	s := &Session{
		log:      slog.Default(),
		source:   source,
		sttP:     sttP,
		out:      out,
		dispatch: dispatch,
		capture:  defaultCaptureConfig,
		metrics:  observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) setState(st State) {
	if s.onState != nil {
		s.onState(st)
	}
}

// HandleTurn runs one full voice turn after a wake trigger.
//
// If the agent is mid-sentence, speech stops before the microphone opens:
// waking the agent while it talks means "shut up and listen", and recording
// must never start while our own audio is still playing.
func (s *Session) HandleTurn(ctx context.Context) error {
	turnStart := time.Now()
	defer func() {
		s.metrics.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())
	}()

	if s.out.IsSpeaking() {
		s.out.Stop()
	}

	s.setState(StateCapturing)
	captureStart := time.Now()
	frame, err := s.source.Capture(ctx, s.capture)
	s.metrics.CaptureDuration.Record(ctx, time.Since(captureStart).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "audio", "capture")
		s.setState(StateAwaitingWake)
		return err
	}

	s.setState(StateProcessing)
	text, err := s.transcribe(ctx, frame)
	if err != nil {
		s.setState(StateAwaitingWake)
		return err
	}

	if text == "" {
		s.log.Info("no command heard after wake")
		s.setState(StateSpeaking)
		s.out.Say(retryPrompt)
		s.setState(StateAwaitingWake)
		return nil
	}

	s.log.Info("heard command", "text", text)
	res := s.dispatch.Execute(ctx, text)

	// The tts action speaks its own payload; echoing the summary on top
	// would cancel it.
	if res.Action != command.KindTTS {
		s.setState(StateSpeaking)
		s.out.Say(res.Summary)
	}
	s.setState(StateAwaitingWake)
	return nil
}

// transcribe runs free STT, then offers the intent recognizer a short second
// window when nothing came back.
func (s *Session) transcribe(ctx context.Context, frame audio.Frame) (string, error) {
	sttStart := time.Now()
	text, err := s.sttP.Transcribe(ctx, frame)
	s.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stt", "transcribe")
		return "", err
	}
	text = strings.TrimSpace(text)
	if text != "" || s.intents == nil {
		return text, nil
	}

	s.log.Info("empty transcript, trying intent window")
	frame2, err := s.source.Capture(ctx, intentCaptureConfig)
	if err != nil {
		return "", err
	}
	inf, ok, err := s.intents.Infer(ctx, frame2)
	if err != nil || !ok {
		return "", err
	}
	return inf.Text(), nil
}
