package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/wake"
)

// Mode names how the loop listens.
type Mode string

// Listening modes, in fallback order.
const (
	// ModeWake means a wake detector gates each turn.
	ModeWake Mode = "wake"

	// ModeContinuous means every captured utterance is treated as a
	// command, with no wake phrase. Used when no wake backend is
	// available.
	ModeContinuous Mode = "continuous"
)

// ErrNoVoiceBackend indicates that neither a wake detector nor an STT
// provider is available, so the voice loop cannot run at all.
var ErrNoVoiceBackend = errors.New("voice: no voice backend available")

// Loop drives the always-on pipeline: it owns the microphone between turns
// and hands each triggered turn to a [Session].
type Loop struct {
	log     *slog.Logger
	source  audio.Source
	wakeDet wake.Detector
	session *Session
	onState func(State)
}

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithLoopLogger attaches a logger. Default is slog.Default().
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

// WithWakeDetector gates turns on a wake phrase. Without one the loop runs
// in continuous mode.
func WithWakeDetector(d wake.Detector) LoopOption {
	return func(l *Loop) { l.wakeDet = d }
}

// WithLoopStateFunc registers a callback invoked on loop-level state
// changes.
func WithLoopStateFunc(fn func(State)) LoopOption {
	return func(l *Loop) { l.onState = fn }
}

// NewLoop constructs a Loop feeding session from source.
func NewLoop(source audio.Source, session *Session, opts ...LoopOption) *Loop {
	l := &Loop{
		log:     slog.Default(),
		source:  source,
		session: session,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Mode reports how the loop will listen.
func (l *Loop) Mode() Mode {
	if l.wakeDet != nil {
		return ModeWake
	}
	return ModeContinuous
}

// Run listens until ctx is cancelled. The return value is nil on a clean
// shutdown and the terminal error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if l.session == nil {
		return ErrNoVoiceBackend
	}

	mode := l.Mode()
	l.log.Info("voice loop started", "mode", string(mode))
	defer l.log.Info("voice loop stopped")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var err error
		if mode == ModeWake {
			err = l.wakeTurn(ctx)
		} else {
			err = l.session.HandleTurn(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// One bad turn must not kill the pipeline.
			l.log.Error("voice turn failed", "error", err)
		}
	}
}

// wakeTurn feeds microphone frames to the detector until the wake phrase is
// heard, then runs one session turn.
func (l *Loop) wakeTurn(ctx context.Context) error {
	if l.onState != nil {
		l.onState(StateAwaitingWake)
	}

	for {
		frame, err := l.source.ReadFrame(ctx)
		if err != nil {
			return fmt.Errorf("voice: read frame: %w", err)
		}
		detected, err := l.wakeDet.Process(ctx, frame)
		if err != nil {
			return fmt.Errorf("voice: wake detection: %w", err)
		}
		if !detected {
			continue
		}

		l.log.Info("wake phrase detected")
		l.wakeDet.Reset()
		return l.session.HandleTurn(ctx)
	}
}
