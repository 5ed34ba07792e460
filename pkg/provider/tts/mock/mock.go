// Package mock provides an in-memory [tts.Engine] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/uberdiz/saint/pkg/provider/tts"
)

// Compile-time assertion that Engine satisfies tts.Engine.
var _ tts.Engine = (*Engine)(nil)

// Engine is a mock [tts.Engine]. Safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	// SpeakErr, when non-nil, is returned by every Speak call.
	SpeakErr error

	// Block, when non-nil, makes Speak wait until the channel is closed or
	// the context is cancelled. Useful for exercising interruption.
	Block chan struct{}

	// SpeakCalls records the texts passed to Speak, in order.
	SpeakCalls []string
}

// Speak implements [tts.Engine].
func (e *Engine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	e.SpeakCalls = append(e.SpeakCalls, text)
	block := e.Block
	err := e.SpeakErr
	e.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Calls returns a copy of the recorded Speak texts.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.SpeakCalls))
	copy(out, e.SpeakCalls)
	return out
}
