package respond

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/uberdiz/saint/internal/history"
	"github.com/uberdiz/saint/internal/resilience"
)

// systemPrompt is the agent's persona. Kept short: the model runs locally on
// modest hardware in the common case.
const systemPrompt = "You are SAINT, the user's local assistant running on their machine. " +
	"Behavior: direct, practical, concise. Don't sugar-coat. " +
	"Capabilities: open local apps, control Spotify, search the web, open YouTube search results, " +
	"read bookmarks, simulate keyboard/mouse, and run a small set of safe shell commands. " +
	"Personality: helpful, slightly blunt, friendly; remember the user's simple preferences. " +
	"When performing an action, say a short confirmation. If an action fails, explain why and provide a fallback."

// promptedTurns bounds how much conversation context is sent with each
// request.
const promptedTurns = 10

// Compile-time assertion that LLM satisfies the Responder interface.
var _ Responder = (*LLM)(nil)

// LLM is a [Responder] backed by any chat model reachable through
// any-llm-go (OpenAI, Anthropic, Ollama, llama.cpp and friends).
type LLM struct {
	backend  anyllmlib.Provider
	model    string
	log      history.Store
	userName func() string
	breaker  *resilience.Breaker
}

// LLMOption is a functional option for configuring an [LLM] responder.
type LLMOption func(*LLM)

// WithHistory attaches a conversation log. Recent turns are included in each
// prompt and both sides of the exchange are recorded.
func WithHistory(log history.Store) LLMOption {
	return func(l *LLM) { l.log = log }
}

// WithLLMUserName supplies a display-name lookup so replies can address the
// user by name.
func WithLLMUserName(fn func() string) LLMOption {
	return func(l *LLM) { l.userName = fn }
}

// WithBreaker replaces the default circuit breaker guarding backend calls.
func WithBreaker(b *resilience.Breaker) LLMOption {
	return func(l *LLM) {
		if b != nil {
			l.breaker = b
		}
	}
}

// NewLLM constructs an [LLM] responder on backend using model.
func NewLLM(backend anyllmlib.Provider, model string, opts ...LLMOption) (*LLM, error) {
	if backend == nil {
		return nil, fmt.Errorf("respond: backend must not be nil")
	}
	if model == "" {
		return nil, fmt.Errorf("respond: model must not be empty")
	}
	l := &LLM{
		backend:  backend,
		model:    model,
		userName: func() string { return "" },
		breaker:  resilience.New("llm"),
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Respond implements [Responder].
func (l *LLM) Respond(ctx context.Context, text string) (string, error) {
	messages := []anyllmlib.Message{{Role: anyllmlib.RoleSystem, Content: l.buildSystem()}}

	if l.log != nil {
		recent, err := l.log.Recent(ctx, promptedTurns)
		if err == nil {
			for _, e := range recent {
				role := anyllmlib.RoleUser
				if e.Role == history.RoleAssistant {
					role = anyllmlib.RoleAssistant
				}
				messages = append(messages, anyllmlib.Message{Role: role, Content: e.Text})
			}
		}
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: text})

	// A tripped breaker fails fast here, so the dispatcher drops to its
	// fallback responder instead of stalling the turn on a dead backend.
	var reply string
	err := l.breaker.Do(func() error {
		resp, cerr := l.backend.Completion(ctx, anyllmlib.CompletionParams{
			Model:    l.model,
			Messages: messages,
		})
		if cerr != nil {
			return cerr
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty choices in response")
		}
		reply = strings.TrimSpace(resp.Choices[0].Message.ContentString())
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("respond: completion: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("respond: model returned empty reply")
	}
	return reply, nil
}

// BreakerState reports the state of the breaker guarding backend calls.
// Exposed for readiness checks.
func (l *LLM) BreakerState() resilience.State {
	return l.breaker.State()
}

// buildSystem appends the user's name to the persona when one is known.
func (l *LLM) buildSystem() string {
	if name := l.userName(); name != "" {
		return systemPrompt + " The user's name is " + name + "."
	}
	return systemPrompt
}
