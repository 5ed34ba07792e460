// Package respond produces conversational replies for utterances that do not
// map to a whitelisted action.
//
// Two implementations exist: [LLM], which prompts a configured language model
// with recent conversation context, and [Rules], a dependency-free pattern
// responder. The dispatcher tries the configured primary first and falls back
// to [Rules] when it fails, so the agent always has something to say.
package respond

import "context"

// Responder turns a free-form utterance into a spoken reply.
//
// Implementations must be safe for concurrent use.
type Responder interface {
	// Respond returns a reply for text. An error means no reply could be
	// produced; callers decide how to fall back.
	Respond(ctx context.Context, text string) (string, error)
}
