// Package audio defines the audio capture primitives shared by the voice
// pipeline: mono PCM frames, the Source abstraction over a microphone (or a
// test double), and WAV encoding for providers that upload captured audio.
//
// All audio in this project is mono float32 PCM. The default sample rate is
// 16 kHz, which every configured recognition backend accepts directly.
package audio

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultSampleRate is the capture sample rate in Hz.
	DefaultSampleRate = 16000

	// DefaultFrameLength is the number of samples per wake-word frame
	// (32 ms at 16 kHz).
	DefaultFrameLength = 512
)

// Frame is one bounded span of captured mono PCM.
//
// A fixed-size Frame (DefaultFrameLength samples) is the unit fed to wake-word
// detectors; a variable-size Frame holds a full command utterance. Frames are
// transient values — they exist for the duration of one capture and are never
// persisted.
type Frame struct {
	// PCM holds mono samples in [-1, 1].
	PCM []float32

	// SampleRate in Hz.
	SampleRate int

	// Start and End bound the capture window, relative to stream start.
	Start, End time.Duration
}

// Duration returns the audio duration represented by the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.PCM)) * time.Second / time.Duration(f.SampleRate)
}

// CaptureConfig bounds a single utterance capture.
type CaptureConfig struct {
	// MaxDuration caps the total capture length. Zero means 8 s.
	MaxDuration time.Duration

	// SilenceAfter ends the capture once this much trailing silence follows
	// detected speech. Zero means 600 ms.
	SilenceAfter time.Duration
}

// Source abstracts a live audio input. Implementations must bound every read:
// no method may block past its deadline-bearing context plus one hardware
// buffer length.
//
// Implementations must be safe for use from a single goroutine; the voice
// loop is the sole reader.
type Source interface {
	// ReadFrame returns the next fixed-size frame (DefaultFrameLength
	// samples). It is the low-latency path used for wake-word scanning.
	ReadFrame(ctx context.Context) (Frame, error)

	// Capture records one utterance using RMS-based endpointing: it waits for
	// speech, then returns once cfg.SilenceAfter of trailing silence is seen
	// or cfg.MaxDuration elapses. A capture that times out before any speech
	// returns an empty frame and a nil error.
	Capture(ctx context.Context, cfg CaptureConfig) (Frame, error)

	// Close releases the underlying device. Reads after Close return an error.
	Close() error
}

// RMS returns the root-mean-square level of the samples. Used by Source
// implementations for silence endpointing.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
