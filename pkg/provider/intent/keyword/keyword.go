// Package keyword implements [intent.Recognizer] by transcribing the
// utterance and spotting configured trigger phrases in the result.
//
// It is deliberately simple: each intent lists trigger phrases, and the first
// intent whose phrase appears in the transcript wins, with the remainder of
// the transcript captured into a single catch-all slot when the intent
// declares one. This mirrors what a dedicated intent engine provides, at the
// accuracy of whatever STT backend is configured.
package keyword

import (
	"context"
	"strings"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/intent"
	"github.com/uberdiz/saint/pkg/provider/stt"
)

// Intent declares one recognizable command for the Recognizer.
type Intent struct {
	// Name is the intent name reported in the Inference.
	Name string

	// Phrases are the trigger phrases, matched case-insensitively as
	// prefixes of the transcript.
	Phrases []string

	// CaptureSlot, when non-empty, receives the transcript text following
	// the matched phrase.
	CaptureSlot string
}

// Compile-time assertion that Recognizer satisfies intent.Recognizer.
var _ intent.Recognizer = (*Recognizer)(nil)

// Recognizer spots intents in STT transcripts. Read-only after construction,
// so it is safe for concurrent use.
type Recognizer struct {
	sttP    stt.Provider
	intents []Intent
}

// New constructs a Recognizer backed by sttP. Intents are matched in the
// order given; the first phrase match wins.
func New(sttP stt.Provider, intents []Intent) *Recognizer {
	return &Recognizer{sttP: sttP, intents: intents}
}

// DefaultIntents covers the hands-free shortcuts that are worth salvaging
// when free transcription fails: playback control and the couple of
// single-word commands users bark at the device.
func DefaultIntents() []Intent {
	return []Intent{
		{Name: "next", Phrases: []string{"next", "skip"}},
		{Name: "previous", Phrases: []string{"previous", "back"}},
		{Name: "pause spotify", Phrases: []string{"pause", "stop music", "stop playing"}},
		{Name: "resume spotify", Phrases: []string{"resume", "play music"}},
		{Name: "open", Phrases: []string{"open", "launch", "start"}, CaptureSlot: "target"},
		{Name: "search", Phrases: []string{"search for", "search"}, CaptureSlot: "q"},
	}
}

// Infer implements [intent.Recognizer].
func (r *Recognizer) Infer(ctx context.Context, frame audio.Frame) (intent.Inference, bool, error) {
	text, err := r.sttP.Transcribe(ctx, frame)
	if err != nil {
		return intent.Inference{}, false, err
	}
	heard := strings.ToLower(strings.TrimSpace(text))
	if heard == "" {
		return intent.Inference{}, false, nil
	}

	for _, in := range r.intents {
		for _, phrase := range in.Phrases {
			rest, ok := matchPhrase(heard, phrase)
			if !ok {
				continue
			}
			inf := intent.Inference{Intent: in.Name}
			if in.CaptureSlot != "" && rest != "" {
				inf.Slots = map[string]string{in.CaptureSlot: rest}
			}
			return inf, true, nil
		}
	}
	return intent.Inference{}, false, nil
}

// matchPhrase reports whether heard begins with phrase at a word boundary and
// returns the remainder.
func matchPhrase(heard, phrase string) (rest string, ok bool) {
	if heard == phrase {
		return "", true
	}
	if strings.HasPrefix(heard, phrase+" ") {
		return strings.TrimSpace(heard[len(phrase):]), true
	}
	return "", false
}
