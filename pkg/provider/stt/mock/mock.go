// Package mock provides an in-memory [stt.Provider] for unit tests.
//
// The mock replays queued transcripts in order and records every call. All
// methods are safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock [stt.Provider]. Set the result fields before use;
// inspect the call records after.
type Provider struct {
	mu sync.Mutex

	// Transcripts are returned by successive Transcribe calls. When
	// exhausted, Transcribe returns ("", TranscribeErr).
	Transcripts []string

	// TranscribeErr is returned once Transcripts is exhausted.
	TranscribeErr error

	// TranscribeCalls records the frames passed to Transcribe, in order.
	TranscribeCalls []audio.Frame
}

// Transcribe implements [stt.Provider].
func (p *Provider) Transcribe(ctx context.Context, frame audio.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, frame)
	if len(p.Transcripts) == 0 {
		return "", p.TranscribeErr
	}
	t := p.Transcripts[0]
	p.Transcripts = p.Transcripts[1:]
	return t, nil
}
