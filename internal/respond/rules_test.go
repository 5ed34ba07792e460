package respond

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRulesNeverFailsAndNeverEmpty(t *testing.T) {
	t.Parallel()

	r := NewRules()
	for _, text := range []string{"", "   ", "open the pod bay doors", "hello", "who are you", "gibberish xyzzy"} {
		got, err := r.Respond(context.Background(), text)
		if err != nil {
			t.Errorf("Respond(%q) error = %v, want nil", text, err)
		}
		if got == "" {
			t.Errorf("Respond(%q) returned empty reply", text)
		}
	}
}

func TestRulesPersonalizesGreeting(t *testing.T) {
	t.Parallel()

	r := NewRules(WithUserName(func() string { return "Ada" }))
	got, err := r.Respond(context.Background(), "hey")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(got, "Ada") {
		t.Errorf("Respond(hey) = %q, want greeting with name", got)
	}
}

func TestRulesGreetingNeedsWholeWord(t *testing.T) {
	t.Parallel()

	r := NewRules()
	got, err := r.Respond(context.Background(), "think about this")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if strings.Contains(got, "Hey") {
		t.Errorf("Respond(%q) = %q, matched greeting inside a word", "think about this", got)
	}
}

func TestRulesTellsTime(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, time.March, 1, 15, 4, 0, 0, time.UTC)
	r := NewRules(WithClock(func() time.Time { return fixed }))
	got, err := r.Respond(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(got, "3:04 PM") {
		t.Errorf("Respond(what time is it) = %q, want clock reading", got)
	}
}

func TestRulesIdentity(t *testing.T) {
	t.Parallel()

	r := NewRules()
	got, err := r.Respond(context.Background(), "who are you exactly")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(got, "SAINT") {
		t.Errorf("Respond(who are you) = %q, want self-introduction", got)
	}
}
