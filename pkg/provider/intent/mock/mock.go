// Package mock provides an in-memory [intent.Recognizer] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/uberdiz/saint/pkg/audio"
	"github.com/uberdiz/saint/pkg/provider/intent"
)

// Compile-time assertion that Recognizer satisfies intent.Recognizer.
var _ intent.Recognizer = (*Recognizer)(nil)

// Result is one queued Infer outcome.
type Result struct {
	Inference intent.Inference
	OK        bool
	Err       error
}

// Recognizer is a mock [intent.Recognizer]. Safe for concurrent use.
type Recognizer struct {
	mu sync.Mutex

	// Results are returned by successive Infer calls. When exhausted, Infer
	// returns a zero Inference with ok=false.
	Results []Result

	// InferCalls records the frames passed to Infer, in order.
	InferCalls []audio.Frame
}

// Infer implements [intent.Recognizer].
func (r *Recognizer) Infer(ctx context.Context, frame audio.Frame) (intent.Inference, bool, error) {
	if err := ctx.Err(); err != nil {
		return intent.Inference{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.InferCalls = append(r.InferCalls, frame)
	if len(r.Results) == 0 {
		return intent.Inference{}, false, nil
	}
	res := r.Results[0]
	r.Results = r.Results[1:]
	return res.Inference, res.OK, res.Err
}
