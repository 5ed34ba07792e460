// Package voice runs the hands-free pipeline: wait for the wake phrase,
// capture the command, dispatch it, and speak the outcome — while letting
// the user interrupt the agent mid-sentence by waking it again.
package voice

// State is the voice pipeline's externally visible phase.
type State string

// Pipeline states.
const (
	// StateIdle means the pipeline is not running.
	StateIdle State = "idle"

	// StateAwaitingWake means the pipeline is listening for the wake phrase.
	StateAwaitingWake State = "awaiting_wake"

	// StateCapturing means a command utterance is being recorded.
	StateCapturing State = "capturing"

	// StateProcessing means the utterance is being transcribed and
	// dispatched.
	StateProcessing State = "processing"

	// StateSpeaking means the agent is speaking a reply.
	StateSpeaking State = "speaking"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateAwaitingWake, StateCapturing, StateProcessing, StateSpeaking:
		return true
	}
	return false
}
