package voice

import (
	"testing"
	"time"

	ttsmock "github.com/uberdiz/saint/pkg/provider/tts/mock"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSpeechOutputSpeaksAndFinishes(t *testing.T) {
	t.Parallel()

	engine := &ttsmock.Engine{}
	out := NewSpeechOutput(engine)

	out.Say("hello")
	waitFor(t, func() bool { return !out.IsSpeaking() }, "utterance never finished")

	if calls := engine.Calls(); len(calls) != 1 || calls[0] != "hello" {
		t.Errorf("Speak calls = %v, want [hello]", calls)
	}
}

func TestSpeechOutputStopInterrupts(t *testing.T) {
	t.Parallel()

	engine := &ttsmock.Engine{Block: make(chan struct{})}
	out := NewSpeechOutput(engine)

	out.Say("a very long sentence")
	waitFor(t, out.IsSpeaking, "speaking flag never set")

	out.Stop()
	if out.IsSpeaking() {
		t.Error("IsSpeaking() = true after Stop")
	}
}

func TestSpeechOutputStopWhenSilentIsNoop(t *testing.T) {
	t.Parallel()

	out := NewSpeechOutput(&ttsmock.Engine{})
	// Must not panic or block.
	out.Stop()
	out.Stop()
	if out.IsSpeaking() {
		t.Error("IsSpeaking() = true without Say")
	}
}

func TestSpeechOutputSayReplacesCurrentUtterance(t *testing.T) {
	t.Parallel()

	engine := &ttsmock.Engine{Block: make(chan struct{})}
	out := NewSpeechOutput(engine)

	out.Say("first")
	waitFor(t, out.IsSpeaking, "first utterance never started")

	out.Say("second")
	waitFor(t, func() bool { return len(engine.Calls()) == 2 }, "second utterance never started")

	calls := engine.Calls()
	if calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Speak calls = %v, want [first second]", calls)
	}
	if !out.IsSpeaking() {
		t.Error("IsSpeaking() = false while second utterance blocked")
	}

	out.Stop()
}

func TestSpeechOutputEmptyTextIsNoop(t *testing.T) {
	t.Parallel()

	engine := &ttsmock.Engine{}
	out := NewSpeechOutput(engine)
	out.Say("")
	time.Sleep(20 * time.Millisecond)
	if len(engine.Calls()) != 0 {
		t.Errorf("Speak calls = %v, want none", engine.Calls())
	}
}
