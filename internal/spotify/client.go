// Package spotify is a minimal Spotify Web API client covering the playback
// controls the agent exposes: play, pause, resume, next, previous and seek.
//
// Authentication follows the authorization-code flow. Tokens are cached in a
// JSON file so a single browser login survives restarts; expired access
// tokens are refreshed transparently when a refresh token is cached.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for the states callers phrase differently to the user.
var (
	// ErrNotConfigured indicates no client credentials are available, so the
	// integration is off entirely.
	ErrNotConfigured = errors.New("spotify: not configured")

	// ErrNotAuthenticated indicates credentials exist but no user token has
	// been obtained yet.
	ErrNotAuthenticated = errors.New("spotify: not authenticated")

	// ErrNoActiveDevice maps the Web API's 404 on player endpoints: the user
	// has no Spotify client open anywhere.
	ErrNoActiveDevice = errors.New("spotify: no active device")
)

const (
	apiBase    = "https://api.spotify.com/v1"
	tokenURL   = "https://accounts.spotify.com/api/token"
	authURL    = "https://accounts.spotify.com/authorize"
	apiTimeout = 5 * time.Second

	// scopes covers playback state reads and transport control.
	scopes = "user-read-playback-state user-modify-playback-state user-read-currently-playing user-read-private"
)

// Playback is a snapshot of the user's player state.
type Playback struct {
	// IsPlaying reports whether audio is currently playing.
	IsPlaying bool

	// ProgressMS is the position within the current track in milliseconds.
	ProgressMS int

	// Track is the current track's display name, empty when nothing loaded.
	Track string

	// Artist is the primary artist name.
	Artist string

	// Device is the active device's display name.
	Device string
}

// tokenCache is the persisted token file layout.
type tokenCache struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Client talks to the Spotify Web API. Safe for concurrent use.
type Client struct {
	httpc        *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	cachePath    string

	mu    sync.Mutex
	token tokenCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// WithRedirectURI overrides the OAuth redirect URI.
func WithRedirectURI(uri string) Option {
	return func(cl *Client) { cl.redirectURI = uri }
}

// New constructs a Client with credentials and a token cache file. Empty
// clientID or clientSecret yields a client whose every call reports
// [ErrNotConfigured]; callers keep such a client around so the agent can say
// "not configured" instead of crashing.
func New(clientID, clientSecret, cachePath string, opts ...Option) *Client {
	c := &Client{
		httpc:        &http.Client{Timeout: apiTimeout},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  "http://127.0.0.1:8765/spotify/callback",
		cachePath:    cachePath,
	}
	for _, o := range opts {
		o(c)
	}
	c.loadCache()
	return c
}

// Configured reports whether client credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// Authenticated reports whether a usable token is cached.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.AccessToken != "" || c.token.RefreshToken != ""
}

// AuthURL returns the authorization URL the user must visit to grant
// playback access.
func (c *Client) AuthURL() (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", scopes)
	return authURL + "?" + q.Encode(), nil
}

// Authorize exchanges a callback code for tokens and persists them.
func (c *Client) Authorize(ctx context.Context, code string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.fetchToken(ctx, form)
}

// ─────────────────────────────────────────────────────────────────────────────
// Playback control
// ─────────────────────────────────────────────────────────────────────────────

// CurrentPlayback fetches a fresh player snapshot.
func (c *Client) CurrentPlayback(ctx context.Context) (Playback, error) {
	body, status, err := c.call(ctx, http.MethodGet, "/me/player", nil)
	if err != nil {
		return Playback{}, err
	}
	// 204 means authenticated but nothing is playing anywhere.
	if status == http.StatusNoContent {
		return Playback{}, nil
	}

	var raw struct {
		IsPlaying  bool `json:"is_playing"`
		ProgressMS int  `json:"progress_ms"`
		Item       struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"item"`
		Device struct {
			Name string `json:"name"`
		} `json:"device"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Playback{}, fmt.Errorf("spotify: parse playback: %w", err)
	}
	pb := Playback{
		IsPlaying:  raw.IsPlaying,
		ProgressMS: raw.ProgressMS,
		Track:      raw.Item.Name,
		Device:     raw.Device.Name,
	}
	if len(raw.Item.Artists) > 0 {
		pb.Artist = raw.Item.Artists[0].Name
	}
	return pb, nil
}

// Play starts playback of uri. Track URIs and open.spotify.com track links
// play as single tracks; anything else (album, playlist, artist URIs) is
// treated as a playback context. An empty uri resumes whatever is paused.
func (c *Client) Play(ctx context.Context, uri string) error {
	body := map[string]any{}
	switch {
	case uri == "":
		// resume current context
	case strings.HasPrefix(uri, "spotify:track:"):
		body["uris"] = []string{uri}
	case strings.HasPrefix(uri, "http"):
		if id := trackIDFromLink(uri); id != "" {
			body["uris"] = []string{"spotify:track:" + id}
		}
	default:
		body["context_uri"] = uri
	}
	_, _, err := c.call(ctx, http.MethodPut, "/me/player/play", body)
	return err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	_, _, err := c.call(ctx, http.MethodPut, "/me/player/pause", nil)
	return err
}

// Resume resumes the paused context.
func (c *Client) Resume(ctx context.Context) error {
	return c.Play(ctx, "")
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	_, _, err := c.call(ctx, http.MethodPost, "/me/player/next", nil)
	return err
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	_, _, err := c.call(ctx, http.MethodPost, "/me/player/previous", nil)
	return err
}

// Seek jumps to positionMS within the current track. Negative positions are
// clamped to the start.
func (c *Client) Seek(ctx context.Context, positionMS int) error {
	if positionMS < 0 {
		positionMS = 0
	}
	_, _, err := c.call(ctx, http.MethodPut, "/me/player/seek?position_ms="+strconv.Itoa(positionMS), nil)
	return err
}

// SearchAndPlay searches tracks first and playback contexts second, playing
// the best hit.
func (c *Client) SearchAndPlay(ctx context.Context, query string) error {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track,album,playlist,artist")
	q.Set("limit", "5")
	body, _, err := c.call(ctx, http.MethodGet, "/search?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	var raw struct {
		Tracks struct {
			Items []struct {
				URI string `json:"uri"`
			} `json:"items"`
		} `json:"tracks"`
		Playlists struct {
			Items []struct {
				URI string `json:"uri"`
			} `json:"items"`
		} `json:"playlists"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("spotify: parse search: %w", err)
	}
	if len(raw.Tracks.Items) > 0 {
		return c.Play(ctx, raw.Tracks.Items[0].URI)
	}
	if len(raw.Playlists.Items) > 0 {
		return c.Play(ctx, raw.Playlists.Items[0].URI)
	}
	return fmt.Errorf("spotify: no match for %q", query)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport and token plumbing
// ─────────────────────────────────────────────────────────────────────────────

// call performs one authenticated API request and translates the player
// endpoints' status conventions into errors.
func (c *Client) call(ctx context.Context, method, path string, body map[string]any) ([]byte, int, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("spotify: marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("spotify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("spotify: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("spotify: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return data, resp.StatusCode, nil
	case http.StatusNotFound:
		return nil, resp.StatusCode, ErrNoActiveDevice
	case http.StatusUnauthorized:
		return nil, resp.StatusCode, ErrNotAuthenticated
	default:
		return nil, resp.StatusCode, fmt.Errorf("spotify: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// accessToken returns a live access token, refreshing via the cached refresh
// token when the current one has expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()

	if tok.AccessToken != "" && (tok.ExpiresAt == 0 || time.Now().Unix() < tok.ExpiresAt-30) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", ErrNotAuthenticated
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tok.RefreshToken)
	if err := c.fetchToken(ctx, form); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.AccessToken, nil
}

// fetchToken hits the accounts token endpoint with form and persists the
// result. The refresh grant may omit a new refresh token; the old one is
// kept in that case.
func (c *Client) fetchToken(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("spotify: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: token request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("spotify: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify: token request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("spotify: parse token response: %w", err)
	}

	c.mu.Lock()
	c.token.AccessToken = raw.AccessToken
	if raw.RefreshToken != "" {
		c.token.RefreshToken = raw.RefreshToken
	}
	if raw.ExpiresIn > 0 {
		c.token.ExpiresAt = time.Now().Unix() + raw.ExpiresIn
	}
	tok := c.token
	c.mu.Unlock()

	return c.saveCache(tok)
}

// loadCache best-effort reads the token file; a missing or corrupt cache
// simply leaves the client unauthenticated.
func (c *Client) loadCache() {
	if c.cachePath == "" {
		return
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return
	}
	var tok tokenCache
	if err := json.Unmarshal(data, &tok); err != nil {
		return
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// saveCache persists tok to the cache file.
func (c *Client) saveCache(tok tokenCache) error {
	if c.cachePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("spotify: marshal token cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0o755); err != nil {
		return fmt.Errorf("spotify: create cache dir: %w", err)
	}
	if err := os.WriteFile(c.cachePath, data, 0o600); err != nil {
		return fmt.Errorf("spotify: write token cache: %w", err)
	}
	return nil
}

// trackIDFromLink extracts the track ID from an open.spotify.com link.
func trackIDFromLink(link string) string {
	const marker = "/track/"
	i := strings.Index(link, marker)
	if i < 0 {
		return ""
	}
	id := link[i+len(marker):]
	for j, r := range id {
		if !isAlnum(r) {
			return id[:j]
		}
	}
	return id
}

func isAlnum(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}
