package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uberdiz/saint/internal/observe"
	"github.com/uberdiz/saint/pkg/provider/tts"
)

// SpeechOutput serializes spoken replies over a [tts.Engine] and makes them
// interruptible.
//
// At most one utterance plays at a time. Say replaces the current utterance;
// Stop cancels it and waits for playback to actually end, so a caller about
// to record audio never captures the agent's own voice tail.
type SpeechOutput struct {
	log     *slog.Logger
	engine  tts.Engine
	metrics *observe.Metrics

	mu       sync.Mutex
	speaking bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// OutputOption is a functional option for configuring a SpeechOutput.
type OutputOption func(*SpeechOutput)

// WithOutputLogger attaches a logger. Default is slog.Default().
func WithOutputLogger(log *slog.Logger) OutputOption {
	return func(o *SpeechOutput) { o.log = log }
}

// WithOutputMetrics replaces the default pipeline metrics.
func WithOutputMetrics(m *observe.Metrics) OutputOption {
	return func(o *SpeechOutput) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewSpeechOutput constructs a SpeechOutput over engine.
func NewSpeechOutput(engine tts.Engine, opts ...OutputOption) *SpeechOutput {
	o := &SpeechOutput{
		log:     slog.Default(),
		engine:  engine,
		metrics: observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Say speaks text without blocking the caller. A previous utterance still
// playing is cancelled first. Empty text is a no-op.
func (o *SpeechOutput) Say(text string) {
	if text == "" || o.engine == nil {
		return
	}

	o.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.mu.Lock()
	o.speaking = true
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	o.metrics.Speaking.Add(context.Background(), 1)

	go func() {
		defer close(done)
		defer func() {
			o.mu.Lock()
			// A newer Say may already own the fields.
			if o.done == done {
				o.speaking = false
				o.cancel = nil
				o.done = nil
			}
			o.mu.Unlock()
			cancel()
			o.metrics.Speaking.Add(context.Background(), -1)
		}()

		start := time.Now()
		err := o.engine.Speak(ctx, text)
		o.metrics.TTSDuration.Record(context.Background(), time.Since(start).Seconds())
		if err != nil && ctx.Err() == nil {
			o.metrics.RecordProviderError(context.Background(), "tts", "speak")
			o.log.Warn("speech failed", "error", err)
		}
	}()
}

// Stop cancels the current utterance and blocks until its worker has
// finished. Calling Stop while nothing is playing is a safe no-op.
func (o *SpeechOutput) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// IsSpeaking reports whether an utterance is currently playing.
func (o *SpeechOutput) IsSpeaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaking
}

// Close stops any playback. The SpeechOutput must not be used afterwards.
func (o *SpeechOutput) Close() error {
	o.Stop()
	return nil
}
