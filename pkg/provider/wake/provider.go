// Package wake defines the Detector interface for wake-word backends.
//
// A wake detector consumes fixed-size PCM frames from the live microphone
// stream and reports when the configured wake phrase has been spoken. The
// voice loop feeds it every frame while awaiting a trigger; on detection it
// switches to full command capture.
package wake

import (
	"context"

	"github.com/uberdiz/saint/pkg/audio"
)

// Detector is the abstraction over any wake-word backend.
//
// Implementations keep rolling internal state across Process calls and must
// be safe for use from a single goroutine (the voice loop). Reset must be
// safe to call at any time between Process calls.
type Detector interface {
	// Process examines one fixed-size frame and reports whether the wake
	// phrase completed within it. Errors are transient — the caller logs and
	// keeps feeding frames.
	Process(ctx context.Context, frame audio.Frame) (bool, error)

	// Reset discards rolling audio state. Called after a detection so stale
	// audio does not re-trigger, and after command capture completes.
	Reset()
}
