package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/uberdiz/saint/internal/bookmarks"
	"github.com/uberdiz/saint/internal/history"
	"github.com/uberdiz/saint/internal/launcher"
	"github.com/uberdiz/saint/internal/profile"
	"github.com/uberdiz/saint/internal/respond"
	"github.com/uberdiz/saint/internal/spotify"
)

// ResultKind classifies what [Dispatcher.Execute] did with an utterance.
type ResultKind string

// Result kinds.
const (
	// ResultAction means a whitelisted action was executed.
	ResultAction ResultKind = "action"

	// ResultChat means no action matched and a responder answered.
	ResultChat ResultKind = "chat"

	// ResultChatFallback means an action matched but was refused, and a
	// responder answered instead. Reason says why.
	ResultChatFallback ResultKind = "chat_fallback"

	// ResultError means the utterance was empty or execution failed.
	ResultError ResultKind = "error"
)

// Reason explains a chat_fallback.
type Reason string

// Fallback reasons.
const (
	ReasonNotWhitelisted Reason = "not_whitelisted"
	ReasonUnsafeShell    Reason = "unsafe_shell"
)

// Result is the outcome of one dispatched utterance. Summary is always
// non-empty and speakable.
type Result struct {
	Kind    ResultKind `json:"kind"`
	Action  ActionKind `json:"action,omitempty"`
	Reason  Reason     `json:"reason,omitempty"`
	Summary string     `json:"summary"`

	// Detail carries extra output not meant to be spoken, like shell
	// command stdout or a bookmark listing.
	Detail string `json:"detail,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborator interfaces
// ─────────────────────────────────────────────────────────────────────────────

// Opener launches apps, files and URLs.
type Opener interface {
	OpenTarget(ctx context.Context, target string) (string, error)
	OpenURL(ctx context.Context, rawURL string) error
	OpenVSCode(ctx context.Context) error
	OpenFileInVSCode(ctx context.Context, path string) error
}

// InputSimulator injects keyboard and mouse events.
type InputSimulator interface {
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
	Click(ctx context.Context, x, y int) error
}

// Player controls music playback.
type Player interface {
	Configured() bool
	SearchAndPlay(ctx context.Context, query string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	CurrentPlayback(ctx context.Context) (spotify.Playback, error)
}

// Shell runs whitelisted shell commands.
type Shell interface {
	Run(ctx context.Context, cmdline string) (launcher.RunResult, error)
}

// Head drives the robot head hardware.
type Head interface {
	MoveServo(name string, deg int) error
	SetEyeColor(r, g, b int) error
}

// Speaker queues text for speech without blocking.
type Speaker interface {
	Say(text string)
}

// BookmarkSource lists the user's browser bookmarks.
type BookmarkSource interface {
	List(ctx context.Context) ([]bookmarks.Bookmark, error)
}

// UserProfile records usage and the user's name.
type UserProfile interface {
	RecordAction(kind string) error
	SetDisplayName(name string) error
	DisplayName() string
}

// fileBookmarkSource reads the platform's bookmark file on each call, so a
// freshly added bookmark is visible without restarting.
type fileBookmarkSource struct{}

func (fileBookmarkSource) List(ctx context.Context) ([]bookmarks.Bookmark, error) {
	return bookmarks.Load("")
}

// ─────────────────────────────────────────────────────────────────────────────
// Dispatcher
// ─────────────────────────────────────────────────────────────────────────────

// Dispatcher parses utterances and executes the resulting actions. Safe for
// concurrent use as long as its collaborators are.
type Dispatcher struct {
	log      *slog.Logger
	registry *Registry
	goos     string

	opener    Opener
	input     InputSimulator
	player    Player
	shell     Shell
	head      Head
	speaker   Speaker
	bookmarks BookmarkSource
	profile   UserProfile

	primary  respond.Responder
	fallback respond.Responder
	convo     history.Store
}

// DispatcherOption is a functional option for configuring a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger attaches a logger. Default is slog.Default().
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// WithOpener sets the app/URL opener.
func WithOpener(o Opener) DispatcherOption {
	return func(d *Dispatcher) { d.opener = o }
}

// WithInput sets the input simulator.
func WithInput(in InputSimulator) DispatcherOption {
	return func(d *Dispatcher) { d.input = in }
}

// WithPlayer sets the music player.
func WithPlayer(p Player) DispatcherOption {
	return func(d *Dispatcher) { d.player = p }
}

// WithShell sets the shell runner.
func WithShell(s Shell) DispatcherOption {
	return func(d *Dispatcher) { d.shell = s }
}

// WithHead sets the robot head driver.
func WithHead(h Head) DispatcherOption {
	return func(d *Dispatcher) { d.head = h }
}

// WithSpeaker sets the speech output used by the tts action.
func WithSpeaker(s Speaker) DispatcherOption {
	return func(d *Dispatcher) { d.speaker = s }
}

// WithBookmarks sets the bookmark source. Default reads the local browser
// bookmark file.
func WithBookmarks(b BookmarkSource) DispatcherOption {
	return func(d *Dispatcher) { d.bookmarks = b }
}

// WithProfile sets the user profile store.
func WithProfile(p UserProfile) DispatcherOption {
	return func(d *Dispatcher) { d.profile = p }
}

// WithResponder sets the primary chat responder, normally LLM-backed.
func WithResponder(r respond.Responder) DispatcherOption {
	return func(d *Dispatcher) { d.primary = r }
}

// WithFallbackResponder replaces the rules fallback.
func WithFallbackResponder(r respond.Responder) DispatcherOption {
	return func(d *Dispatcher) { d.fallback = r }
}

// WithHistory attaches a conversation log for chat turns.
func WithHistory(log history.Store) DispatcherOption {
	return func(d *Dispatcher) { d.convo = log }
}

// NewDispatcher constructs a Dispatcher. Collaborators left unset degrade to
// spoken "not available" summaries rather than panics, except the fallback
// responder which always exists.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		log:       slog.Default(),
		registry:  registry,
		goos:      runtime.GOOS,
		opener:    launcher.New(),
		input:     launcher.NewInput(),
		shell:     launcher.NewRunner(),
		bookmarks: fileBookmarkSource{},
		fallback:  respond.NewRules(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Execute parses text and runs the matched action, or answers via chat. The
// returned Result always carries a non-empty speakable Summary.
func (d *Dispatcher) Execute(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Kind: ResultError, Summary: "I couldn't hear anything."}
	}

	// A self-introduction sticks on every utterance, even one that carries
	// an action ("my name is Alex, open spotify" must not lose the name).
	d.captureName(text)

	action, ok := Parse(text)
	if !ok {
		return d.chat(ctx, text, ResultChat, "")
	}
	if !d.registry.Whitelisted(action.Kind) {
		return d.chat(ctx, text, ResultChatFallback, ReasonNotWhitelisted)
	}
	if action.Kind == KindRunShell && !action.Allowed {
		return d.chat(ctx, text, ResultChatFallback, ReasonUnsafeShell)
	}

	start := time.Now()
	res := d.execute(ctx, action)
	d.log.Info("executed action",
		"action", string(action.Kind),
		"result", string(res.Kind),
		"duration", time.Since(start),
	)
	return res
}

// record bumps the profile counter for kind; failures are logged, never
// surfaced, because a broken profile file must not break commands.
func (d *Dispatcher) record(kind ActionKind) {
	if d.profile == nil {
		return
	}
	if err := d.profile.RecordAction(string(kind)); err != nil {
		d.log.Warn("failed to record action", "action", string(kind), "error", err)
	}
}

// errResult wraps an execution failure into a speakable error Result.
func errResult(err error) Result {
	return Result{Kind: ResultError, Summary: fmt.Sprintf("Error executing action: %v", err)}
}

// actionResult builds a successful action Result.
func actionResult(kind ActionKind, summary string) Result {
	return Result{Kind: ResultAction, Action: kind, Summary: summary}
}

// execute runs one whitelisted, allowed action.
func (d *Dispatcher) execute(ctx context.Context, a Action) Result {
	switch a.Kind {
	case KindYouTubeSearch:
		return d.execYouTubeSearch(ctx, a)
	case KindListBookmarks:
		return d.execListBookmarks(ctx)
	case KindOpenBookmark:
		return d.execOpenBookmark(ctx, a)
	case KindSpotifyPlay:
		return d.execSpotifyPlay(ctx, a)
	case KindSpotifyPause:
		return d.execSpotifyPause(ctx)
	case KindSpotifyResume:
		return d.execSpotifyResume(ctx)
	case KindSpotifyNext:
		return d.execSpotifyTransport(ctx, KindSpotifyNext, "Skipping to next track.")
	case KindSpotifyPrevious:
		return d.execSpotifyTransport(ctx, KindSpotifyPrevious, "Going to previous track.")
	case KindSpotifySeek:
		return d.execSpotifySeek(ctx, a)
	case KindSearch:
		return d.execSearch(ctx, a)
	case KindOpen:
		return d.execOpen(ctx, a)
	case KindOpenVSCode:
		return d.execOpenVSCode(ctx)
	case KindOpenFileVSCode:
		return d.execOpenFileVSCode(ctx, a)
	case KindType:
		return d.execType(ctx, a)
	case KindPress:
		return d.execPress(ctx, a)
	case KindClick:
		return d.execClick(ctx, a)
	case KindTTS:
		return d.execTTS(a)
	case KindEye:
		return d.execEye(a)
	case KindServoMove:
		return d.execServoMove(a)
	case KindRunShell:
		return d.execRunShell(ctx, a)
	}
	return Result{Kind: ResultError, Summary: "I couldn't handle that action."}
}

func (d *Dispatcher) execYouTubeSearch(ctx context.Context, a Action) Result {
	if a.Query == "" {
		return actionResult(KindYouTubeSearch, "What should I search for on YouTube?")
	}
	if err := d.opener.OpenURL(ctx, launcher.YouTubeSearchURL(a.Query)); err != nil {
		return errResult(err)
	}
	d.record(KindYouTubeSearch)
	return actionResult(KindYouTubeSearch, fmt.Sprintf("Searching YouTube for '%s'.", a.Query))
}

func (d *Dispatcher) execListBookmarks(ctx context.Context) Result {
	list, err := d.bookmarks.List(ctx)
	d.record(KindListBookmarks)
	if err != nil {
		return actionResult(KindListBookmarks, fmt.Sprintf("No bookmarks: %v", err))
	}

	var sb strings.Builder
	for _, b := range list {
		fmt.Fprintf(&sb, "%s\t%s\n", b.Name, b.URL)
	}
	res := actionResult(KindListBookmarks, fmt.Sprintf("Found %d bookmarks.", len(list)))
	res.Detail = sb.String()
	return res
}

func (d *Dispatcher) execOpenBookmark(ctx context.Context, a Action) Result {
	list, err := d.bookmarks.List(ctx)
	d.record(KindOpenBookmark)
	if err != nil {
		return actionResult(KindOpenBookmark, fmt.Sprintf("Couldn't find a bookmark for '%s'.", a.Query))
	}
	bk, _, err := bookmarks.Find(list, a.Query)
	if err != nil {
		summary := fmt.Sprintf("Couldn't find a bookmark for '%s'.", a.Query)
		if hint, ok := bookmarks.Suggest(list, a.Query); ok {
			summary += fmt.Sprintf(" Did you mean '%s'?", hint.Name)
		}
		return actionResult(KindOpenBookmark, summary)
	}
	if err := d.opener.OpenURL(ctx, bk.URL); err != nil {
		return errResult(err)
	}
	return actionResult(KindOpenBookmark, fmt.Sprintf("Opening bookmark matching '%s'.", a.Query))
}

func (d *Dispatcher) execSpotifyPlay(ctx context.Context, a Action) Result {
	if d.player == nil || !d.player.Configured() {
		webURL := "https://open.spotify.com/search/" + strings.ReplaceAll(a.Query, " ", "%20")
		if err := d.opener.OpenURL(ctx, webURL); err != nil {
			return errResult(err)
		}
		d.record(KindSpotifyPlay)
		return actionResult(KindSpotifyPlay, fmt.Sprintf("Opening Spotify web and searching for '%s'.", a.Query))
	}
	if err := d.player.SearchAndPlay(ctx, a.Query); err != nil {
		d.log.Warn("spotify play failed", "query", a.Query, "error", err)
	}
	d.record(KindSpotifyPlay)
	return actionResult(KindSpotifyPlay, fmt.Sprintf("Attempting to play '%s' on Spotify.", a.Query))
}

func (d *Dispatcher) execSpotifyPause(ctx context.Context) Result {
	if d.player == nil || !d.player.Configured() {
		if d.opener != nil {
			_ = d.opener.OpenURL(ctx, "https://open.spotify.com")
		}
		return actionResult(KindSpotifyPause, "Can't pause — Spotify not configured.")
	}
	if err := d.player.Pause(ctx); err != nil {
		d.record(KindSpotifyPause)
		return actionResult(KindSpotifyPause, fmt.Sprintf("Could not pause Spotify: %v", err))
	}
	d.record(KindSpotifyPause)
	return actionResult(KindSpotifyPause, "Pausing Spotify.")
}

func (d *Dispatcher) execSpotifyResume(ctx context.Context) Result {
	if d.player == nil || !d.player.Configured() {
		if d.opener != nil {
			_ = d.opener.OpenURL(ctx, "https://open.spotify.com")
		}
		return actionResult(KindSpotifyResume, "Opening Spotify web.")
	}
	if err := d.player.Resume(ctx); err != nil {
		d.record(KindSpotifyResume)
		return actionResult(KindSpotifyResume, fmt.Sprintf("Could not resume Spotify: %v", err))
	}
	d.record(KindSpotifyResume)
	return actionResult(KindSpotifyResume, "Resuming Spotify.")
}

func (d *Dispatcher) execSpotifyTransport(ctx context.Context, kind ActionKind, summary string) Result {
	if d.player == nil || !d.player.Configured() {
		return actionResult(kind, "Spotify not configured.")
	}
	var err error
	if kind == KindSpotifyNext {
		err = d.player.Next(ctx)
	} else {
		err = d.player.Previous(ctx)
	}
	if err != nil {
		d.log.Warn("spotify transport failed", "action", string(kind), "error", err)
	}
	d.record(kind)
	return actionResult(kind, summary)
}

func (d *Dispatcher) execSpotifySeek(ctx context.Context, a Action) Result {
	if d.player == nil || !d.player.Configured() {
		return actionResult(KindSpotifySeek, "Spotify not configured.")
	}
	// Always seek from a fresh snapshot so two rapid rewinds compound.
	pb, err := d.player.CurrentPlayback(ctx)
	if err != nil {
		return actionResult(KindSpotifySeek, "Couldn't get current playback.")
	}
	newPos := pb.ProgressMS + a.OffsetSeconds*1000
	if newPos < 0 {
		newPos = 0
	}
	if err := d.player.Seek(ctx, newPos); err != nil {
		return errResult(err)
	}
	d.record(KindSpotifySeek)
	return actionResult(KindSpotifySeek, fmt.Sprintf("Seeking %d seconds.", a.OffsetSeconds))
}

func (d *Dispatcher) execSearch(ctx context.Context, a Action) Result {
	if err := d.opener.OpenURL(ctx, launcher.SearchURL(a.Query)); err != nil {
		return errResult(err)
	}
	d.record(KindSearch)
	return actionResult(KindSearch, fmt.Sprintf("Searching Google for '%s'.", a.Query))
}

func (d *Dispatcher) execOpen(ctx context.Context, a Action) Result {
	tgt := a.Target
	tl := strings.ToLower(tgt)

	if tgt == "file_explorer" || strings.HasPrefix(tl, "explorer") {
		var summary, openTarget string
		switch d.goos {
		case "windows":
			openTarget, summary = "explorer", "Opening File Explorer."
		case "darwin":
			openTarget, summary = ".", "Opening Finder."
		default:
			openTarget, summary = ".", "Opening file manager."
		}
		if _, err := d.opener.OpenTarget(ctx, openTarget); err != nil {
			return errResult(err)
		}
		d.record(KindOpen)
		return actionResult(KindOpen, summary)
	}

	if tl == "spotify" || tl == "spotify web" || tl == "open spotify" {
		if _, err := d.opener.OpenTarget(ctx, "spotify"); err != nil {
			return errResult(err)
		}
		d.record(KindOpen)
		return actionResult(KindOpen, "Opening Spotify.")
	}

	if strings.HasPrefix(tgt, "http") {
		if err := d.opener.OpenURL(ctx, tgt); err != nil {
			return errResult(err)
		}
		d.record(KindOpen)
		return actionResult(KindOpen, fmt.Sprintf("Opening %s.", tgt))
	}

	if _, err := d.opener.OpenTarget(ctx, tgt); err != nil {
		return errResult(err)
	}
	d.record(KindOpen)
	return actionResult(KindOpen, fmt.Sprintf("Opening %s.", tgt))
}

func (d *Dispatcher) execOpenVSCode(ctx context.Context) Result {
	if err := d.opener.OpenVSCode(ctx); err != nil {
		return errResult(err)
	}
	d.record(KindOpenVSCode)
	return actionResult(KindOpenVSCode, "Opening Visual Studio Code.")
}

func (d *Dispatcher) execOpenFileVSCode(ctx context.Context, a Action) Result {
	p := a.Path
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	if err := d.opener.OpenFileInVSCode(ctx, p); err != nil {
		return errResult(err)
	}
	d.record(KindOpenFileVSCode)
	return actionResult(KindOpenFileVSCode, fmt.Sprintf("Opening %s in VSCode.", p))
}

func (d *Dispatcher) execType(ctx context.Context, a Action) Result {
	if d.input == nil {
		return actionResult(KindType, "Input simulation isn't available.")
	}
	if err := d.input.TypeText(ctx, a.Text); err != nil {
		return errResult(err)
	}
	d.record(KindType)
	return actionResult(KindType, fmt.Sprintf("Typing: %s", a.Text))
}

func (d *Dispatcher) execPress(ctx context.Context, a Action) Result {
	if d.input == nil {
		return actionResult(KindPress, "Input simulation isn't available.")
	}
	if err := d.input.PressKey(ctx, a.Key); err != nil {
		return errResult(err)
	}
	d.record(KindPress)
	return actionResult(KindPress, fmt.Sprintf("Pressing %s.", a.Key))
}

func (d *Dispatcher) execClick(ctx context.Context, a Action) Result {
	if d.input == nil {
		return actionResult(KindClick, "Input simulation isn't available.")
	}
	if err := d.input.Click(ctx, a.X, a.Y); err != nil {
		return errResult(err)
	}
	d.record(KindClick)
	return actionResult(KindClick, fmt.Sprintf("Clicking at %d,%d.", a.X, a.Y))
}

func (d *Dispatcher) execTTS(a Action) Result {
	if d.speaker == nil {
		return actionResult(KindTTS, "Speech output isn't available.")
	}
	d.speaker.Say(a.Text)
	d.record(KindTTS)
	return actionResult(KindTTS, fmt.Sprintf("Saying: %s", a.Text))
}

func (d *Dispatcher) execEye(a Action) Result {
	if d.head == nil {
		return actionResult(KindEye, "The robot head isn't connected.")
	}
	if err := d.head.SetEyeColor(a.R, a.G, a.B); err != nil {
		return errResult(err)
	}
	d.record(KindEye)
	return actionResult(KindEye, fmt.Sprintf("Set eye color to %d,%d,%d.", a.R, a.G, a.B))
}

func (d *Dispatcher) execServoMove(a Action) Result {
	if d.head == nil {
		return actionResult(KindServoMove, "The robot head isn't connected.")
	}
	if err := d.head.MoveServo(a.Servo, a.Deg); err != nil {
		return errResult(err)
	}
	d.record(KindServoMove)
	return actionResult(KindServoMove, fmt.Sprintf("Moving %s to %d degrees.", a.Servo, a.Deg))
}

func (d *Dispatcher) execRunShell(ctx context.Context, a Action) Result {
	// Execute already refused disallowed commands; re-check the prefix
	// gate before spawning anything.
	if !a.Allowed || !shellAllowed(a.Command) {
		return actionResult(KindRunShell, "That shell command isn't allowed for safety.")
	}
	if d.shell == nil {
		return actionResult(KindRunShell, "Shell execution isn't available.")
	}
	out, err := d.shell.Run(ctx, a.Command)
	if err != nil {
		return errResult(err)
	}
	d.record(KindRunShell)
	res := actionResult(KindRunShell, fmt.Sprintf("Ran shell command: %s", a.Command))
	res.Detail = strings.TrimSpace(out.Stdout + "\n" + out.Stderr)
	return res
}

// chat answers an utterance conversationally and records the exchange.
func (d *Dispatcher) chat(ctx context.Context, text string, kind ResultKind, reason Reason) Result {
	reply := d.chatReply(ctx, text)
	d.appendHistory(ctx, text, reply)
	return Result{Kind: kind, Reason: reason, Summary: reply}
}

// captureName persists the display name when text is a self-introduction.
// The name was already saved by Execute by the time any responder runs.
func (d *Dispatcher) captureName(text string) {
	name, ok := profile.ExtractName(text)
	if !ok || d.profile == nil {
		return
	}
	if err := d.profile.SetDisplayName(name); err != nil {
		d.log.Warn("failed to save display name", "error", err)
	}
}

// chatReply produces the conversational answer: a self-introduction gets a
// greeting, then the primary responder is tried, then the rules fallback.
func (d *Dispatcher) chatReply(ctx context.Context, text string) string {
	if name, ok := profile.ExtractName(text); ok {
		return fmt.Sprintf("Nice to meet you, %s. What can I do for you?", name)
	}

	if d.primary != nil {
		reply, err := d.primary.Respond(ctx, text)
		if err == nil {
			return reply
		}
		d.log.Warn("primary responder failed, using rules", "error", err)
	}
	reply, _ := d.fallback.Respond(ctx, text)
	return reply
}

// appendHistory best-effort records both sides of a chat turn.
func (d *Dispatcher) appendHistory(ctx context.Context, userText, reply string) {
	if d.convo == nil {
		return
	}
	now := time.Now()
	if err := d.convo.Append(ctx, history.Entry{Role: history.RoleUser, Text: userText, Timestamp: now}); err != nil {
		d.log.Warn("failed to log user turn", "error", err)
		return
	}
	if err := d.convo.Append(ctx, history.Entry{Role: history.RoleAssistant, Text: reply, Timestamp: now}); err != nil {
		d.log.Warn("failed to log assistant turn", "error", err)
	}
}
