package respond

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Compile-time assertion that Rules satisfies the Responder interface.
var _ Responder = (*Rules)(nil)

// Rules is the dependency-free pattern responder. It keeps the agent's
// personality available when no language model is configured or reachable,
// and it never returns an error.
type Rules struct {
	// userName, when non-nil, supplies the user's display name for
	// personalized replies. Returning "" means no name is known.
	userName func() string

	// now is overridable for tests.
	now func() time.Time
}

// RulesOption is a functional option for configuring a [Rules] responder.
type RulesOption func(*Rules)

// WithUserName supplies a display-name lookup for personalized replies.
func WithUserName(fn func() string) RulesOption {
	return func(r *Rules) { r.userName = fn }
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) RulesOption {
	return func(r *Rules) { r.now = fn }
}

// NewRules constructs a [Rules] responder.
func NewRules(opts ...RulesOption) *Rules {
	r := &Rules{
		userName: func() string { return "" },
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Respond implements [Responder]. The returned error is always nil.
func (r *Rules) Respond(ctx context.Context, text string) (string, error) {
	p := strings.TrimSpace(text)
	if p == "" {
		return "Say something and I'll try to help.", nil
	}
	pl := strings.ToLower(p)

	switch {
	case containsAny(pl, "who are you", "what are you", "what is your name"):
		name := r.userName()
		if name == "" {
			name = "friend"
		}
		return fmt.Sprintf("I'm SAINT, your local assistant. I run on your machine and help with apps, Spotify, files, and small automations. I'll call you %s.", name), nil

	case containsAny(pl, "what time is it", "what's the time", "current time"):
		return "It's " + r.now().Format("3:04 PM") + ".", nil

	case containsAny(pl, "what day is it", "what's the date", "today's date"):
		return "Today is " + r.now().Format("Monday, January 2") + ".", nil

	case containsAny(pl, "thank you", "thanks"):
		return "Anytime.", nil

	case hasAnyWord(pl, "hello", "hi", "hey"):
		name := r.userName()
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf("Hey %s, tell me what to open or ask me to do something.", name), nil
	}

	return fmt.Sprintf("I heard: %q. I can open apps, control Spotify, search the web, or run safe commands.", p), nil
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hasAnyWord reports whether any of the words appears as a whole token in s.
// Greetings need word matching so that "think" does not count as "hi".
func hasAnyWord(s string, words ...string) bool {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	})
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}
