// Package mock provides an in-memory implementation of [audio.Source] for
// unit tests.
//
// The mock replays queued frames and capture results in order, records every
// call, and never touches real hardware. All methods are safe for concurrent
// use.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/uberdiz/saint/pkg/audio"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Source is a mock [audio.Source]. Set the queued result fields before use;
// inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// Frames are returned by successive ReadFrame calls. When exhausted,
	// ReadFrame returns ReadFrameErr (or a generic error if nil).
	Frames []audio.Frame

	// ReadFrameErr is returned once Frames is exhausted.
	ReadFrameErr error

	// Captures are returned by successive Capture calls. When exhausted,
	// Capture returns an empty frame and CaptureErr.
	Captures []audio.Frame

	// CaptureErr is returned once Captures is exhausted.
	CaptureErr error

	// CloseErr is returned by Close.
	CloseErr error

	// CallCountReadFrame records how many times ReadFrame was called.
	CallCountReadFrame int

	// CaptureCalls records the configs passed to Capture, in order.
	CaptureCalls []audio.CaptureConfig

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// ReadFrame implements [audio.Source].
func (s *Source) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountReadFrame++
	if len(s.Frames) == 0 {
		if s.ReadFrameErr != nil {
			return audio.Frame{}, s.ReadFrameErr
		}
		return audio.Frame{}, errors.New("mock: no frames queued")
	}
	f := s.Frames[0]
	s.Frames = s.Frames[1:]
	return f, nil
}

// Capture implements [audio.Source].
func (s *Source) Capture(ctx context.Context, cfg audio.CaptureConfig) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls = append(s.CaptureCalls, cfg)
	if len(s.Captures) == 0 {
		return audio.Frame{}, s.CaptureErr
	}
	f := s.Captures[0]
	s.Captures = s.Captures[1:]
	return f, nil
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseErr
}
