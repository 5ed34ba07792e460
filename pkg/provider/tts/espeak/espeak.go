// Package espeak implements [tts.Engine] by shelling out to the espeak-ng
// synthesizer.
//
// Running the synthesizer as a child process gives a hard cancellation
// primitive for free: killing the process stops audio mid-word, which is
// exactly what the user-interrupt rule needs. Library-level bindings only
// offer a cooperative stop.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/uberdiz/saint/pkg/provider/tts"
)

const defaultBinary = "espeak-ng"

// Compile-time assertion that Engine satisfies tts.Engine.
var _ tts.Engine = (*Engine)(nil)

// Engine speaks via an espeak-ng subprocess per utterance.
type Engine struct {
	binary string
	voice  string
	rate   int
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithBinary overrides the synthesizer executable. Default "espeak-ng".
func WithBinary(path string) Option {
	return func(e *Engine) { e.binary = path }
}

// WithVoice selects an espeak voice (e.g. "en-us"). Empty uses the
// synthesizer default.
func WithVoice(voice string) Option {
	return func(e *Engine) { e.voice = voice }
}

// WithRate sets the speaking rate in words per minute. Zero uses the
// synthesizer default.
func WithRate(wpm int) Option {
	return func(e *Engine) { e.rate = wpm }
}

// New constructs an Engine and verifies the synthesizer binary is on PATH,
// so unavailability is a constructor-time decision rather than a per-call
// surprise.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{binary: defaultBinary}
	for _, o := range opts {
		o(e)
	}
	if _, err := exec.LookPath(e.binary); err != nil {
		return nil, fmt.Errorf("espeak: synthesizer not available: %w", err)
	}
	return e, nil
}

// Speak implements [tts.Engine]. Cancelling ctx kills the subprocess, which
// halts audio immediately.
func (e *Engine) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	args := []string{}
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	if e.rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}
	args = append(args, "--", text)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Killed by cancellation; report the interrupt, not the exit status.
		return ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("espeak: synthesizer exited with %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("espeak: run synthesizer: %w", err)
	}
	return nil
}
