package command

import (
	"regexp"
	"strconv"
	"strings"
)

// SafeShellPrefixes are the only command-line openings run_shell will
// execute. Matching is a plain prefix test on the trimmed command.
var SafeShellPrefixes = []string{"echo ", "dir ", "ls ", "ping ", "whoami"}

// The rule cascade. Most patterns match on the lowercased utterance; the
// ones that must preserve user casing (typed text, file paths, bookmark
// titles, spoken replies) match case-insensitively on the raw text instead.
var (
	ytOpenRe      = regexp.MustCompile(`^(?:open|search)\s+(?:youtube\s+and\s+)?(?:for\s+|for:)?(.+)`)
	ytSearchRe    = regexp.MustCompile(`^search youtube for (.+)`)
	spotifyPlayRe = regexp.MustCompile(`^play (.+) on spotify`)
	resumeRe      = regexp.MustCompile(`^(play|resume) spotify$`)
	pauseRe       = regexp.MustCompile(`^(pause|stop) spotify$`)
	nextRe        = regexp.MustCompile(`^(skip|next|next song|next track)$`)
	prevRe        = regexp.MustCompile(`^(previous|prev|previous song|previous track|back)$`)
	seekBackRe    = regexp.MustCompile(`^(rewind|seek back|go back)\s+(\d+)\s*(seconds|secs|s)?`)
	searchRe      = regexp.MustCompile(`^(?:search|google search|search google for)\s+(.+)`)
	openGoogleRe  = regexp.MustCompile(`^open (.+) on google`)
	openYouTubeRe = regexp.MustCompile(`^open youtube$`)
	openSpotifyRe = regexp.MustCompile(`^open spotify( web)?$`)
	listBkRe      = regexp.MustCompile(`^(list|show|open) bookmarks?$`)
	openBkRe      = regexp.MustCompile(`(?i)^open (?:my )?bookmark(?: titled)? ['"]?(.+?)['"]?$`)
	explorerRe    = regexp.MustCompile(`^(open|show) (file explorer|explorer|file manager|files)$`)
	vscodeFileRe  = regexp.MustCompile(`(?i)^open\s+["']?(.+?)["']?\s+(?:on|in|with)\s+vscode$`)
	vscodeRe      = regexp.MustCompile(`^(open|launch|start)\s+(vscode|visual studio code)$`)
	typeRe        = regexp.MustCompile(`(?i)^type (?:the )?(.*)`)
	pressRe       = regexp.MustCompile(`(?i)^press (.+)`)
	clickRe       = regexp.MustCompile(`^click(?: at)? (\d+)\s*,?\s*(\d+)`)
	ttsRe         = regexp.MustCompile(`^(say|speak) (.+)`)
	eyeRe         = regexp.MustCompile(`^(set|change) eyes? to (\d{1,3})\s+(\d{1,3})\s+(\d{1,3})`)
	servoRe       = regexp.MustCompile(`^move (\w+) to (\d{1,3})`)
	runRe         = regexp.MustCompile(`^run\s+(.+)`)
)

// Parse maps free text onto an [Action]. It is pure: no I/O, no clock, no
// state. Rules are tried in a fixed order and the first match wins; ok is
// false when nothing matched, which sends the utterance to the chat path.
func Parse(text string) (Action, bool) {
	t := strings.TrimSpace(text)
	tl := strings.ToLower(t)

	// YouTube first so "search youtube for x" never falls into plain search.
	// The dedicated form goes before the loose one: the loose capture starts
	// at "youtube", so it would keep the filler words in the query.
	if m := ytSearchRe.FindStringSubmatch(tl); m != nil {
		return Action{Kind: KindYouTubeSearch, Query: strings.TrimSpace(m[1])}, true
	}
	if openYouTubeRe.MatchString(tl) {
		return Action{Kind: KindOpen, Target: "https://www.youtube.com"}, true
	}
	if m := ytOpenRe.FindStringSubmatch(tl); m != nil && strings.Contains(tl, "youtube") {
		return Action{Kind: KindYouTubeSearch, Query: trimYouTubeFiller(m[1])}, true
	}

	// Spotify transport.
	if m := spotifyPlayRe.FindStringSubmatch(tl); m != nil {
		return Action{Kind: KindSpotifyPlay, Query: strings.TrimSpace(m[1])}, true
	}
	if resumeRe.MatchString(tl) || tl == "play music" {
		return Action{Kind: KindSpotifyResume}, true
	}
	if pauseRe.MatchString(tl) {
		return Action{Kind: KindSpotifyPause}, true
	}
	if nextRe.MatchString(tl) {
		return Action{Kind: KindSpotifyNext}, true
	}
	if prevRe.MatchString(tl) {
		return Action{Kind: KindSpotifyPrevious}, true
	}
	if m := seekBackRe.FindStringSubmatch(tl); m != nil {
		secs, _ := strconv.Atoi(m[2])
		return Action{Kind: KindSpotifySeek, OffsetSeconds: -secs}, true
	}

	// Web search.
	if m := searchRe.FindStringSubmatch(tl); m != nil {
		return Action{Kind: KindSearch, Query: strings.TrimSpace(m[1])}, true
	}
	if m := openGoogleRe.FindStringSubmatch(tl); m != nil {
		return Action{Kind: KindSearch, Query: strings.TrimSpace(m[1])}, true
	}

	// Direct opens.
	if openSpotifyRe.MatchString(tl) {
		return Action{Kind: KindOpen, Target: "spotify"}, true
	}
	if strings.Contains(tl, "schoology") {
		return Action{Kind: KindOpen, Target: "https://app.schoology.com"}, true
	}

	// Bookmarks.
	if listBkRe.MatchString(tl) {
		return Action{Kind: KindListBookmarks}, true
	}
	if m := openBkRe.FindStringSubmatch(t); m != nil {
		return Action{Kind: KindOpenBookmark, Query: strings.TrimSpace(m[1])}, true
	}

	// File explorer.
	if explorerRe.MatchString(tl) {
		return Action{Kind: KindOpen, Target: "file_explorer"}, true
	}

	// VS Code. The path rule keeps the raw casing.
	if m := vscodeFileRe.FindStringSubmatch(t); m != nil {
		return Action{Kind: KindOpenFileVSCode, Path: strings.TrimSpace(m[1])}, true
	}
	if vscodeRe.MatchString(tl) {
		return Action{Kind: KindOpenVSCode}, true
	}

	// Input simulation and speech.
	if m := typeRe.FindStringSubmatch(t); m != nil {
		return Action{Kind: KindType, Text: m[1]}, true
	}
	if m := pressRe.FindStringSubmatch(t); m != nil {
		return Action{Kind: KindPress, Key: strings.TrimSpace(m[1])}, true
	}
	if m := clickRe.FindStringSubmatch(t); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return Action{Kind: KindClick, X: x, Y: y}, true
	}
	if m := ttsRe.FindStringSubmatch(t); m != nil {
		return Action{Kind: KindTTS, Text: m[2]}, true
	}

	// Robot head.
	if m := eyeRe.FindStringSubmatch(tl); m != nil {
		r, _ := strconv.Atoi(m[2])
		g, _ := strconv.Atoi(m[3])
		b, _ := strconv.Atoi(m[4])
		return Action{Kind: KindEye, R: clamp255(r), G: clamp255(g), B: clamp255(b)}, true
	}
	if m := servoRe.FindStringSubmatch(tl); m != nil {
		deg, _ := strconv.Atoi(m[2])
		return Action{Kind: KindServoMove, Servo: strings.ToUpper(m[1]), Deg: deg}, true
	}

	// Shell, gated by the safe prefix list.
	if m := runRe.FindStringSubmatch(tl); m != nil {
		cmd := strings.TrimSpace(m[1])
		return Action{Kind: KindRunShell, Command: cmd, Allowed: shellAllowed(cmd)}, true
	}

	return Action{}, false
}

// trimYouTubeFiller strips the "youtube for" / "youtube and" connective words
// the loose rule's capture group keeps, leaving just the query.
func trimYouTubeFiller(q string) string {
	q = strings.TrimSpace(q)
	q = strings.TrimSpace(strings.TrimPrefix(q, "youtube"))
	for _, filler := range []string{"and ", "for ", "for:"} {
		q = strings.TrimSpace(strings.TrimPrefix(q, filler))
	}
	return q
}

// shellAllowed reports whether cmd starts with one of [SafeShellPrefixes].
func shellAllowed(cmd string) bool {
	for _, p := range SafeShellPrefixes {
		if strings.HasPrefix(cmd, p) {
			return true
		}
	}
	return false
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
