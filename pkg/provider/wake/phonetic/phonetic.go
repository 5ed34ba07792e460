// Package phonetic implements [wake.Detector] by transcribing a short rolling
// audio window and phonetically matching the result against the wake phrase.
//
// The detector buffers recent frames; once the window holds enough speech
// energy it runs the STT provider over the window and compares each
// transcribed token to the wake phrase tokens in two stages:
//
//  1. Double Metaphone code overlap — catches recognitions that mangle the
//     spelling but keep the sound ("cent" vs "saint").
//  2. Jaro-Winkler similarity on the raw strings with a configurable
//     threshold — catches near-misses the phonetic codes disagree on.
//
// This trades detection latency (one STT pass per window) for having no
// model-file dependency beyond the STT backend that is already loaded.
package phonetic

import (
	"context"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/stt"
	"github.com/uberdiz/saint/pkg/provider/wake"
)

const (
	defaultWindow         = 1500 * time.Millisecond
	defaultFuzzyThreshold = 0.82
	defaultSpeechRMS      = 0.015
)

// Compile-time assertion that Detector satisfies wake.Detector.
var _ wake.Detector = (*Detector)(nil)

// Detector is a transcription-based wake-word detector.
type Detector struct {
	sttP       stt.Provider
	phrase     string
	tokens     []string
	codes      map[string]struct{}
	window     time.Duration
	threshold  float64

	// rolling capture state, owned by the voice loop goroutine
	buf       []float32
	bufRate   int
	hasSpeech bool
}

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithWindow sets the rolling audio window length. Default 1.5 s.
func WithWindow(d time.Duration) Option {
	return func(det *Detector) { det.window = d }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a non-phonetic
// token match. Default 0.82.
func WithFuzzyThreshold(t float64) Option {
	return func(det *Detector) { det.threshold = t }
}

// New constructs a Detector for the given wake phrase backed by sttP.
func New(sttP stt.Provider, phrase string, opts ...Option) *Detector {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	det := &Detector{
		sttP:      sttP,
		phrase:    strings.Join(tokens, " "),
		tokens:    tokens,
		codes:     codesForTokens(tokens),
		window:    defaultWindow,
		threshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(det)
	}
	return det
}

// Process implements [wake.Detector].
func (det *Detector) Process(ctx context.Context, frame audio.Frame) (bool, error) {
	if len(frame.PCM) == 0 {
		return false, nil
	}
	det.bufRate = frame.SampleRate
	det.buf = append(det.buf, frame.PCM...)
	if audio.RMS(frame.PCM) > defaultSpeechRMS {
		det.hasSpeech = true
	}

	windowSamples := int(det.window.Seconds() * float64(det.bufRate))
	if len(det.buf) < windowSamples {
		return false, nil
	}

	// Window is full. Only pay for an STT pass when it held any speech.
	buf := det.buf
	hadSpeech := det.hasSpeech
	det.Reset()
	if !hadSpeech {
		return false, nil
	}

	text, err := det.sttP.Transcribe(ctx, audio.Frame{PCM: buf, SampleRate: det.bufRate})
	if err != nil {
		return false, err
	}
	return det.matches(text), nil
}

// Reset implements [wake.Detector].
func (det *Detector) Reset() {
	det.buf = nil
	det.hasSpeech = false
}

// matches reports whether text contains the wake phrase, token by token.
// Every phrase token must be matched by some transcript token, phonetically
// or by string similarity.
func (det *Detector) matches(text string) bool {
	heard := strings.Fields(strings.ToLower(text))
	if len(heard) == 0 {
		return false
	}

	for _, want := range det.tokens {
		if !tokenMatched(want, heard, det.threshold) {
			return false
		}
	}
	return true
}

// tokenMatched reports whether any heard token matches want.
func tokenMatched(want string, heard []string, threshold float64) bool {
	wantCodes := codesForTokens([]string{want})
	for _, h := range heard {
		h = strings.Trim(h, ".,!?;:")
		if h == want {
			return true
		}
		if codesOverlap(wantCodes, codesForTokens([]string{h})) {
			return true
		}
		if matchr.JaroWinkler(want, h, false) >= threshold {
			return true
		}
	}
	return false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens, excluding empty codes.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
