// Package launcher opens applications, files and URLs on the local machine
// and runs the small set of shell commands the agent is allowed to execute.
//
// Everything here shells out. The target platform decides the verbs: xdg-open
// on Linux, open on macOS, cmd's start on Windows.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher opens targets on the local desktop. Safe for concurrent use.
type Launcher struct {
	log *slog.Logger

	// goos is overridable for tests.
	goos string

	// start launches a command without waiting for it. Overridable for
	// tests; the default detaches a real process.
	start func(name string, args ...string) error
}

// Option is a functional option for configuring a Launcher.
type Option func(*Launcher)

// WithLogger attaches a logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Launcher) { l.log = log }
}

// WithStarter overrides process launching, for tests.
func WithStarter(fn func(name string, args ...string) error) Option {
	return func(l *Launcher) { l.start = fn }
}

// New constructs a Launcher for the current platform.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		log:  slog.Default(),
		goos: runtime.GOOS,
	}
	l.start = func(name string, args ...string) error {
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return err
		}
		// Detach: the launched app outlives the agent.
		go func() { _ = cmd.Wait() }()
		return nil
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// OpenURL opens a URL in the default browser.
func (l *Launcher) OpenURL(ctx context.Context, rawURL string) error {
	l.log.Info("opening url", "url", rawURL)
	switch l.goos {
	case "windows":
		return l.start("rundll32", "url.dll,FileProtocolHandler", rawURL)
	case "darwin":
		return l.start("open", rawURL)
	default:
		return l.start("xdg-open", rawURL)
	}
}

// SearchURL builds the web search URL for query.
func SearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// YouTubeSearchURL builds the YouTube results URL for query.
func YouTubeSearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
}

// OpenTarget opens an application, file or URL named by a spoken target.
// Well-known app keywords get platform-specific handling; existing paths are
// opened with the desktop's default handler; anything else is tried as a
// command. The returned string describes what was actually opened.
func (l *Launcher) OpenTarget(ctx context.Context, target string) (string, error) {
	targ := strings.TrimSpace(target)
	if targ == "" {
		return "", fmt.Errorf("launcher: no target provided")
	}
	if strings.HasPrefix(targ, "http://") || strings.HasPrefix(targ, "https://") {
		return targ, l.OpenURL(ctx, targ)
	}

	tl := strings.ToLower(targ)
	switch {
	case strings.Contains(tl, "spotify"):
		return l.openSpotify(ctx)
	case tl == "command prompt" || tl == "cmd" || tl == "terminal" || tl == "command":
		return l.openTerminal()
	case tl == "vs" || tl == "vscode" || tl == "visual studio code" || tl == "visual studio":
		return "Visual Studio Code", l.OpenVSCode(ctx)
	case tl == "notes" || tl == "notepad" || tl == "sticky notes":
		return l.openNotes()
	}

	if _, err := os.Stat(targ); err == nil {
		return targ, l.openPath(targ)
	}

	// Last resort: treat the target as a command on PATH.
	l.log.Info("opening target as command", "target", targ)
	if err := l.start(targ); err != nil {
		return "", fmt.Errorf("launcher: open %q: %w", targ, err)
	}
	return targ, nil
}

// OpenVSCode launches VS Code.
func (l *Launcher) OpenVSCode(ctx context.Context) error {
	l.log.Info("opening vscode")
	if err := l.start("code"); err != nil {
		return fmt.Errorf("launcher: open vscode: %w", err)
	}
	return nil
}

// OpenFileInVSCode opens path in VS Code.
func (l *Launcher) OpenFileInVSCode(ctx context.Context, path string) error {
	l.log.Info("opening file in vscode", "path", path)
	if err := l.start("code", path); err != nil {
		return fmt.Errorf("launcher: open %q in vscode: %w", path, err)
	}
	return nil
}

// openSpotify prefers the native app and falls back to the web player.
func (l *Launcher) openSpotify(ctx context.Context) (string, error) {
	switch l.goos {
	case "windows":
		if err := l.start("cmd", "/C", "start", "spotify:"); err == nil {
			return "Spotify", nil
		}
	default:
		if err := l.start("spotify"); err == nil {
			return "Spotify", nil
		}
	}
	const web = "https://open.spotify.com"
	if err := l.OpenURL(ctx, web); err != nil {
		return "", fmt.Errorf("launcher: open spotify: %w", err)
	}
	return web, nil
}

func (l *Launcher) openTerminal() (string, error) {
	switch l.goos {
	case "windows":
		if err := l.start("cmd", "/C", "start", "cmd"); err != nil {
			return "", fmt.Errorf("launcher: open terminal: %w", err)
		}
		return "Command Prompt", nil
	case "darwin":
		if err := l.start("open", "-a", "Terminal"); err != nil {
			return "", fmt.Errorf("launcher: open terminal: %w", err)
		}
		return "Terminal", nil
	default:
		if err := l.start("x-terminal-emulator"); err == nil {
			return "terminal", nil
		}
		if err := l.start("gnome-terminal"); err != nil {
			return "", fmt.Errorf("launcher: open terminal: %w", err)
		}
		return "gnome-terminal", nil
	}
}

func (l *Launcher) openNotes() (string, error) {
	switch l.goos {
	case "windows":
		if err := l.start("cmd", "/C", "start", "notepad"); err != nil {
			return "", fmt.Errorf("launcher: open notes: %w", err)
		}
		return "Notepad", nil
	case "darwin":
		if err := l.start("open", "-a", "Notes"); err != nil {
			return "", fmt.Errorf("launcher: open notes: %w", err)
		}
		return "Notes", nil
	default:
		if err := l.start("gedit"); err != nil {
			return "", fmt.Errorf("launcher: open notes: %w", err)
		}
		return "gedit", nil
	}
}

// openPath hands an existing filesystem path to the desktop's default
// handler.
func (l *Launcher) openPath(path string) error {
	switch l.goos {
	case "windows":
		return l.start("cmd", "/C", "start", "", path)
	case "darwin":
		return l.start("open", path)
	default:
		return l.start("xdg-open", path)
	}
}
