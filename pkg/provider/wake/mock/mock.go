// Package mock provides an in-memory [wake.Detector] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/wake"
)

// Compile-time assertion that Detector satisfies wake.Detector.
var _ wake.Detector = (*Detector)(nil)

// Detector is a mock [wake.Detector]. Set the result fields before use;
// inspect the call records after. Safe for concurrent use.
type Detector struct {
	mu sync.Mutex

	// Detections are returned by successive Process calls. When exhausted,
	// Process returns (false, ProcessErr).
	Detections []bool

	// ProcessErr is returned once Detections is exhausted.
	ProcessErr error

	// CallCountProcess records how many times Process was called.
	CallCountProcess int

	// CallCountReset records how many times Reset was called.
	CallCountReset int
}

// Process implements [wake.Detector].
func (d *Detector) Process(ctx context.Context, _ audio.Frame) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountProcess++
	if len(d.Detections) == 0 {
		return false, d.ProcessErr
	}
	det := d.Detections[0]
	d.Detections = d.Detections[1:]
	return det, nil
}

// Reset implements [wake.Detector].
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountReset++
}
