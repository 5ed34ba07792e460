// Package intent defines the Recognizer interface for intent/slot speech
// backends — the structured alternative to free transcription.
//
// When general speech-to-text yields nothing after a wake trigger, the voice
// loop offers a short further audio window to a Recognizer, which may still
// salvage a command as a recognized intent name plus named slot values.
package intent

import (
	"context"
	"strings"

	"github.com/uberdiz/saint/pkg/audio"
)

// Inference is one recognized intent with its slot values.
type Inference struct {
	// Intent is the recognized command name (e.g. "spotify_next").
	Intent string

	// Slots maps slot names to captured values.
	Slots map[string]string
}

// Text flattens the inference into the utterance text handed to the command
// grammar: the intent name followed by "slot value" pairs.
func (inf Inference) Text() string {
	parts := []string{inf.Intent}
	for k, v := range inf.Slots {
		parts = append(parts, k, v)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Recognizer is the abstraction over any intent/slot backend.
//
// Implementations must be safe for concurrent use.
type Recognizer interface {
	// Infer examines one utterance. ok is false when no configured intent
	// matched; that is not an error. Errors are backend faults only.
	Infer(ctx context.Context, frame audio.Frame) (inf Inference, ok bool, err error)
}
