// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider turns one captured utterance of mono PCM into text. The
// voice pipeline captures bounded utterances itself (see [audio.Source]), so
// providers only need batch transcription, not streaming sessions.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/uberdiz/saint/pkg/audio"
)

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts one utterance into text. An unintelligible or
	// silent utterance returns ("", nil) — only transport or backend faults
	// are errors. Implementations must respect ctx cancellation and bound
	// their own network calls.
	Transcribe(ctx context.Context, frame audio.Frame) (string, error)
}
