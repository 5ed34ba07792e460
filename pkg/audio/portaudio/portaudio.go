// Package portaudio implements [audio.Source] on top of the system default
// microphone via PortAudio.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	palib "github.com/gordonklaus/portaudio"

	"github.com/uberdiz/saint/pkg/audio"
)

// speechThresholdRMS is the level above which a frame counts as speech.
const speechThresholdRMS = 0.015

// Compile-time assertion that Mic satisfies audio.Source.
var _ audio.Source = (*Mic)(nil)

// Mic captures mono float32 PCM from the default input device.
//
// A Mic owns one open PortAudio stream for its lifetime. It is intended for a
// single reader goroutine; Close may be called from any goroutine.
type Mic struct {
	sampleRate  int
	frameLength int

	mu       sync.Mutex
	stream   *palib.Stream
	buf      []float32
	elapsed  time.Duration
	closed   bool
}

// Option is a functional option for configuring a Mic.
type Option func(*Mic)

// WithSampleRate overrides the capture sample rate. Default 16000 Hz.
func WithSampleRate(rate int) Option {
	return func(m *Mic) { m.sampleRate = rate }
}

// WithFrameLength overrides the fixed frame size returned by ReadFrame.
// Default [audio.DefaultFrameLength].
func WithFrameLength(n int) Option {
	return func(m *Mic) { m.frameLength = n }
}

// Open initialises PortAudio and opens the default input stream. The caller
// must call Close to release the device and terminate the library.
func Open(opts ...Option) (*Mic, error) {
	m := &Mic{
		sampleRate:  audio.DefaultSampleRate,
		frameLength: audio.DefaultFrameLength,
	}
	for _, o := range opts {
		o(m)
	}

	if err := palib.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialise: %w", err)
	}

	m.buf = make([]float32, m.frameLength)
	stream, err := palib.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameLength, m.buf)
	if err != nil {
		palib.Terminate()
		return nil, fmt.Errorf("portaudio: open default stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		palib.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}
	m.stream = stream
	return m, nil
}

// ReadFrame implements [audio.Source]. One read blocks for at most a single
// hardware buffer (32 ms at the defaults), so the context is only consulted
// between reads.
func (m *Mic) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return audio.Frame{}, errors.New("portaudio: source closed")
	}

	if err := m.stream.Read(); err != nil {
		return audio.Frame{}, fmt.Errorf("portaudio: read: %w", err)
	}

	start := m.elapsed
	m.elapsed += m.frameDuration()

	pcm := make([]float32, len(m.buf))
	copy(pcm, m.buf)
	return audio.Frame{
		PCM:        pcm,
		SampleRate: m.sampleRate,
		Start:      start,
		End:        m.elapsed,
	}, nil
}

// Capture implements [audio.Source] using RMS endpointing: frames are
// discarded until speech is heard, then accumulated until cfg.SilenceAfter of
// trailing silence or cfg.MaxDuration of total audio.
func (m *Mic) Capture(ctx context.Context, cfg audio.CaptureConfig) (audio.Frame, error) {
	maxDur := cfg.MaxDuration
	if maxDur <= 0 {
		maxDur = 8 * time.Second
	}
	silenceAfter := cfg.SilenceAfter
	if silenceAfter <= 0 {
		silenceAfter = 600 * time.Millisecond
	}

	var (
		out      []float32
		speaking bool
		silence  time.Duration
		start    time.Duration
		total    time.Duration
	)

	for total < maxDur {
		frame, err := m.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return audio.Frame{}, err
		}
		total += frame.Duration()

		if audio.RMS(frame.PCM) > speechThresholdRMS {
			if !speaking {
				speaking = true
				start = frame.Start
			}
			silence = 0
			out = append(out, frame.PCM...)
			continue
		}

		if !speaking {
			continue
		}
		silence += frame.Duration()
		if silence >= silenceAfter {
			break
		}
		out = append(out, frame.PCM...)
	}

	if !speaking {
		// Timed out without hearing anything; not an error.
		return audio.Frame{SampleRate: m.sampleRate}, nil
	}
	return audio.Frame{
		PCM:        out,
		SampleRate: m.sampleRate,
		Start:      start,
		End:        start + time.Duration(len(out))*time.Second/time.Duration(m.sampleRate),
	}, nil
}

// Close stops and closes the stream and terminates PortAudio. Safe to call
// more than once.
func (m *Mic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	if err := m.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := palib.Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Mic) frameDuration() time.Duration {
	return time.Duration(m.frameLength) * time.Second / time.Duration(m.sampleRate)
}
