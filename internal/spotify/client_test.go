package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testClient rewires a Client at a httptest server so no real API is hit.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cachePath := filepath.Join(t.TempDir(), "token.json")
	cache := tokenCache{AccessToken: "test-token"}
	data, err := json.Marshal(cache)
	if err != nil {
		t.Fatalf("marshal cache: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0o600); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	c := New("id", "secret", cachePath, WithHTTPClient(&http.Client{
		Transport: rewriteTransport{base: srv.URL},
	}))
	return c
}

// rewriteTransport redirects every request to the test server.
type rewriteTransport struct {
	base string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(rt.base)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()

	c := New("", "", "")
	if c.Configured() {
		t.Error("Configured() = true without credentials")
	}
	if err := c.Pause(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Pause() error = %v, want ErrNotConfigured", err)
	}
}

func TestNotAuthenticated(t *testing.T) {
	t.Parallel()

	c := New("id", "secret", filepath.Join(t.TempDir(), "missing.json"))
	if err := c.Next(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Next() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestNoActiveDevice(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	if err := c.Pause(context.Background()); !errors.Is(err, ErrNoActiveDevice) {
		t.Errorf("Pause() error = %v, want ErrNoActiveDevice", err)
	}
}

func TestCurrentPlayback(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{
			"is_playing": true,
			"progress_ms": 42000,
			"item": {"name": "Song A", "artists": [{"name": "Band B"}]},
			"device": {"name": "Desk"}
		}`))
	}))

	pb, err := c.CurrentPlayback(context.Background())
	if err != nil {
		t.Fatalf("CurrentPlayback() error = %v", err)
	}
	want := Playback{IsPlaying: true, ProgressMS: 42000, Track: "Song A", Artist: "Band B", Device: "Desk"}
	if pb != want {
		t.Errorf("CurrentPlayback() = %+v, want %+v", pb, want)
	}
}

func TestCurrentPlaybackIdle(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	pb, err := c.CurrentPlayback(context.Background())
	if err != nil {
		t.Fatalf("CurrentPlayback() error = %v", err)
	}
	if pb != (Playback{}) {
		t.Errorf("CurrentPlayback() = %+v, want zero snapshot", pb)
	}
}

func TestSeekClampsNegative(t *testing.T) {
	t.Parallel()

	var gotPos string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPos = r.URL.Query().Get("position_ms")
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := c.Seek(context.Background(), -5000); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if gotPos != "0" {
		t.Errorf("position_ms = %q, want 0", gotPos)
	}
}

func TestPlayTrackLink(t *testing.T) {
	t.Parallel()

	var gotBody string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := c.Play(context.Background(), "https://open.spotify.com/track/abc123XYZ?si=foo"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !strings.Contains(gotBody, "spotify:track:abc123XYZ") {
		t.Errorf("play body = %q, want track uri", gotBody)
	}
}

func TestTrackIDFromLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		link string
		want string
	}{
		{link: "https://open.spotify.com/track/abc123", want: "abc123"},
		{link: "https://open.spotify.com/track/abc123?si=x", want: "abc123"},
		{link: "https://open.spotify.com/album/abc123", want: ""},
	}
	for _, tt := range tests {
		if got := trackIDFromLink(tt.link); got != tt.want {
			t.Errorf("trackIDFromLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
