// Package tts defines the Engine interface for text-to-speech backends.
//
// An Engine synthesizes and plays one utterance synchronously. Asynchrony and
// the single-playback invariant live one level up in the voice package's
// speech output — engines only need to block until playback completes or the
// context is cancelled, and to stop producing audio promptly on cancellation.
package tts

import "context"

// Engine is the abstraction over any speech synthesis backend.
//
// Implementations must be safe for concurrent use, although the speech
// output layer never runs two Speak calls at once.
type Engine interface {
	// Speak synthesizes text and plays it to completion. Cancelling ctx must
	// halt playback promptly; Speak then returns ctx.Err(). An empty text is
	// a no-op.
	Speak(ctx context.Context, text string) error
}
