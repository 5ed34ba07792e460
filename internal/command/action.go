// Package command is the agent's core: it parses spoken or typed text into
// whitelisted actions, and executes them against the machine's collaborators
// (launcher, Spotify, bookmarks, robot head, responder).
//
// Parsing and execution are strictly separated. [Parse] is pure and
// side-effect free; [Dispatcher.Execute] owns every side effect and always
// produces a speakable summary.
package command

import (
	"encoding/json"
	"fmt"
	"os"
)

// ActionKind identifies one whitelisted capability. The set is closed: the
// grammar can only ever emit these, and the dispatcher refuses anything
// outside the registry's whitelist.
type ActionKind string

// The whitelisted action kinds.
const (
	KindOpen            ActionKind = "open"
	KindSearch          ActionKind = "search"
	KindYouTubeSearch   ActionKind = "youtube_search"
	KindOpenFileVSCode  ActionKind = "open_file_vscode"
	KindOpenVSCode      ActionKind = "open_vscode"
	KindType            ActionKind = "type"
	KindPress           ActionKind = "press"
	KindClick           ActionKind = "click"
	KindTTS             ActionKind = "tts"
	KindEye             ActionKind = "eye"
	KindServoMove       ActionKind = "servo_move"
	KindRunShell        ActionKind = "run_shell"
	KindListBookmarks   ActionKind = "list_bookmarks"
	KindOpenBookmark    ActionKind = "open_bookmark"
	KindSpotifyPlay     ActionKind = "spotify_play"
	KindSpotifyPause    ActionKind = "spotify_pause"
	KindSpotifyResume   ActionKind = "spotify_resume"
	KindSpotifyNext     ActionKind = "spotify_next"
	KindSpotifyPrevious ActionKind = "spotify_previous"
	KindSpotifySeek     ActionKind = "spotify_seek"
)

// IsValid reports whether k is a known action kind.
func (k ActionKind) IsValid() bool {
	switch k {
	case KindOpen, KindSearch, KindYouTubeSearch, KindOpenFileVSCode,
		KindOpenVSCode, KindType, KindPress, KindClick, KindTTS, KindEye,
		KindServoMove, KindRunShell, KindListBookmarks, KindOpenBookmark,
		KindSpotifyPlay, KindSpotifyPause, KindSpotifyResume,
		KindSpotifyNext, KindSpotifyPrevious, KindSpotifySeek:
		return true
	}
	return false
}

// Action is one parsed command. Only the fields relevant to Kind are set.
type Action struct {
	Kind ActionKind

	// Query carries search terms and bookmark queries.
	Query string

	// Target is the open target: an app keyword, path or URL.
	Target string

	// Path is the file to open in VS Code.
	Path string

	// Text is the payload for type and tts.
	Text string

	// Key is the key name for press.
	Key string

	// X, Y are click coordinates.
	X, Y int

	// R, G, B are eye LED color components, already clamped to [0,255].
	R, G, B int

	// Servo and Deg name a servo and its target angle.
	Servo string
	Deg   int

	// OffsetSeconds is the seek offset; negative rewinds.
	OffsetSeconds int

	// Command is the shell command line for run_shell. Allowed reports
	// whether it starts with a safe prefix; the dispatcher refuses
	// execution when false.
	Command string
	Allowed bool
}

// Descriptor documents one registered action for API consumers.
type Descriptor struct {
	// Kind is the action's identifier.
	Kind ActionKind `json:"kind"`

	// Description is a one-line human summary.
	Description string `json:"description"`
}

// Registry is the closed whitelist of executable actions. Read-only after
// construction, so it is safe for concurrent use.
type Registry struct {
	order []Descriptor
	byKnd map[ActionKind]Descriptor
}

// NewRegistry builds the default registry covering every [ActionKind].
func NewRegistry() *Registry {
	descriptors := []Descriptor{
		{Kind: KindOpen, Description: "Open an application, file, or URL (e.g., 'open spotify', 'open command prompt')."},
		{Kind: KindSearch, Description: "Search the web for a query (opens browser)."},
		{Kind: KindYouTubeSearch, Description: "Search YouTube for a query (opens results page)."},
		{Kind: KindOpenFileVSCode, Description: "Open a file in VSCode."},
		{Kind: KindOpenVSCode, Description: "Open Visual Studio Code."},
		{Kind: KindType, Description: "Simulate typing text."},
		{Kind: KindPress, Description: "Simulate pressing a key."},
		{Kind: KindClick, Description: "Simulate a click at coordinates."},
		{Kind: KindTTS, Description: "Speak text via TTS."},
		{Kind: KindEye, Description: "Set eye LED color."},
		{Kind: KindServoMove, Description: "Move servo to degree."},
		{Kind: KindRunShell, Description: "Run allowed shell commands (very restricted)."},
		{Kind: KindListBookmarks, Description: "List browser bookmarks found locally."},
		{Kind: KindOpenBookmark, Description: "Open a bookmark by title."},
		{Kind: KindSpotifyPlay, Description: "Search and play a song on Spotify."},
		{Kind: KindSpotifyPause, Description: "Pause Spotify playback."},
		{Kind: KindSpotifyResume, Description: "Resume Spotify."},
		{Kind: KindSpotifyNext, Description: "Skip to next track."},
		{Kind: KindSpotifyPrevious, Description: "Previous track."},
		{Kind: KindSpotifySeek, Description: "Seek playback position."},
	}
	byKind := make(map[ActionKind]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byKind[d.Kind] = d
	}
	return &Registry{order: descriptors, byKnd: byKind}
}

// Whitelisted reports whether kind may be executed.
func (r *Registry) Whitelisted(kind ActionKind) bool {
	_, ok := r.byKnd[kind]
	return ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Save writes the registry to a JSON file so external tools can discover the
// action set.
func (r *Registry) Save(path string) error {
	data, err := json.MarshalIndent(r.order, "", "  ")
	if err != nil {
		return fmt.Errorf("command: marshal registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("command: write registry %q: %w", path, err)
	}
	return nil
}
