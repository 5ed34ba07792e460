// Package mock provides an in-memory [respond.Responder] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/uberdiz/saint/internal/respond"
)

// Compile-time assertion that Responder satisfies respond.Responder.
var _ respond.Responder = (*Responder)(nil)

// Responder is a mock [respond.Responder]. Safe for concurrent use.
type Responder struct {
	mu sync.Mutex

	// Reply is returned by every Respond call when RespondErr is nil.
	Reply string

	// RespondErr, when non-nil, is returned by every Respond call.
	RespondErr error

	// RespondCalls records the texts passed to Respond, in order.
	RespondCalls []string
}

// Respond implements [respond.Responder].
func (r *Responder) Respond(ctx context.Context, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RespondCalls = append(r.RespondCalls, text)
	if r.RespondErr != nil {
		return "", r.RespondErr
	}
	return r.Reply, nil
}
