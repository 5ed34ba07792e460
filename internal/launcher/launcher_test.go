package launcher

import (
	"context"
	"testing"
)

// recordingStarter captures launched commands without running anything.
type recordingStarter struct {
	calls [][]string
	errs  []error
}

func (rs *recordingStarter) start(name string, args ...string) error {
	rs.calls = append(rs.calls, append([]string{name}, args...))
	if len(rs.errs) > 0 {
		err := rs.errs[0]
		rs.errs = rs.errs[1:]
		return err
	}
	return nil
}

func TestSearchURLEscapesQuery(t *testing.T) {
	t.Parallel()

	got := SearchURL("lofi beats & chill")
	want := "https://www.google.com/search?q=lofi+beats+%26+chill"
	if got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
}

func TestYouTubeSearchURL(t *testing.T) {
	t.Parallel()

	got := YouTubeSearchURL("lofi beats")
	want := "https://www.youtube.com/results?search_query=lofi+beats"
	if got != want {
		t.Errorf("YouTubeSearchURL() = %q, want %q", got, want)
	}
}

func TestOpenTargetURL(t *testing.T) {
	t.Parallel()

	rs := &recordingStarter{}
	l := New(WithStarter(rs.start))
	l.goos = "linux"

	opened, err := l.OpenTarget(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("OpenTarget() error = %v", err)
	}
	if opened != "https://example.com" {
		t.Errorf("opened = %q", opened)
	}
	if len(rs.calls) != 1 || rs.calls[0][0] != "xdg-open" {
		t.Errorf("calls = %v, want xdg-open", rs.calls)
	}
}

func TestOpenTargetVSCodeKeyword(t *testing.T) {
	t.Parallel()

	for _, kw := range []string{"vscode", "vs", "visual studio code"} {
		rs := &recordingStarter{}
		l := New(WithStarter(rs.start))
		l.goos = "linux"

		opened, err := l.OpenTarget(context.Background(), kw)
		if err != nil {
			t.Fatalf("OpenTarget(%q) error = %v", kw, err)
		}
		if opened != "Visual Studio Code" {
			t.Errorf("OpenTarget(%q) = %q, want Visual Studio Code", kw, opened)
		}
		if len(rs.calls) != 1 || rs.calls[0][0] != "code" {
			t.Errorf("OpenTarget(%q) calls = %v, want code", kw, rs.calls)
		}
	}
}

func TestOpenTargetEmpty(t *testing.T) {
	t.Parallel()

	l := New(WithStarter((&recordingStarter{}).start))
	if _, err := l.OpenTarget(context.Background(), "  "); err == nil {
		t.Error("OpenTarget(blank) error = nil, want error")
	}
}

func TestOpenSpotifyFallsBackToWeb(t *testing.T) {
	t.Parallel()

	rs := &recordingStarter{errs: []error{context.DeadlineExceeded}}
	l := New(WithStarter(rs.start))
	l.goos = "linux"

	opened, err := l.OpenTarget(context.Background(), "spotify")
	if err != nil {
		t.Fatalf("OpenTarget(spotify) error = %v", err)
	}
	if opened != "https://open.spotify.com" {
		t.Errorf("opened = %q, want web player", opened)
	}
	if len(rs.calls) != 2 || rs.calls[1][0] != "xdg-open" {
		t.Errorf("calls = %v, want native attempt then xdg-open", rs.calls)
	}
}

func TestKeyNameMappings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		wantXdo string
		wantWin string
	}{
		{key: "enter", wantXdo: "Return", wantWin: "{ENTER}"},
		{key: "ESC", wantXdo: "Escape", wantWin: "{ESC}"},
		{key: "f5", wantXdo: "f5", wantWin: "f5"},
	}
	for _, tt := range tests {
		if got := xdoKeyName(tt.key); got != tt.wantXdo {
			t.Errorf("xdoKeyName(%q) = %q, want %q", tt.key, got, tt.wantXdo)
		}
		if got := winKeyToken(tt.key); got != tt.wantWin {
			t.Errorf("winKeyToken(%q) = %q, want %q", tt.key, got, tt.wantWin)
		}
	}
}

func TestInputTypeTextUsesXdotool(t *testing.T) {
	t.Parallel()

	var got []string
	in := NewInput(WithInputRunner(func(ctx context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}))
	in.goos = "linux"

	if err := in.TypeText(context.Background(), "hello"); err != nil {
		t.Fatalf("TypeText() error = %v", err)
	}
	if len(got) == 0 || got[0] != "xdotool" || got[len(got)-1] != "hello" {
		t.Errorf("TypeText call = %v, want xdotool ... hello", got)
	}
}

func TestInputTypeTextEmptyIsNoop(t *testing.T) {
	t.Parallel()

	called := false
	in := NewInput(WithInputRunner(func(ctx context.Context, name string, args ...string) error {
		called = true
		return nil
	}))
	if err := in.TypeText(context.Background(), ""); err != nil {
		t.Fatalf("TypeText() error = %v", err)
	}
	if called {
		t.Error("TypeText(empty) invoked the scripting tool")
	}
}
