// Package bookmarks reads Chromium-family browser bookmark files and resolves
// spoken queries against them.
//
// Chrome, Edge, Brave and Chromium all share the same JSON bookmark format,
// so one reader covers them. Matching is tiered from strict to loose and the
// first tier with any hit wins, which keeps "open my bank bookmark" from
// landing on a fuzzy match when an exact title exists.
package bookmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/antzucaro/matchr"
)

// ErrNoBookmarkFile indicates that no bookmark file could be located.
var ErrNoBookmarkFile = errors.New("bookmarks: no bookmark file found")

// ErrNoMatch indicates that no bookmark matched the query in any tier.
var ErrNoMatch = errors.New("bookmarks: no match")

// EnvPathOverride names the environment variable that pins the bookmark file
// location, bypassing the per-platform search.
const EnvPathOverride = "CHROME_BOOKMARKS_PATH"

// Bookmark is one URL entry from a browser bookmark file.
type Bookmark struct {
	// Name is the bookmark's display title.
	Name string `json:"name"`

	// URL is the bookmarked address.
	URL string `json:"url"`

	// Folder is the " > "-joined folder path the bookmark lives under.
	Folder string `json:"folder"`
}

// MatchTier identifies which matching tier produced a hit.
type MatchTier string

// Matching tiers, strictest first.
const (
	MatchExactTitle    MatchTier = "exact_title"
	MatchTitleContains MatchTier = "title_contains"
	MatchURLContains   MatchTier = "url_contains"
	MatchTokenPartial  MatchTier = "fuzzy_partial"
)

// node mirrors the Chromium bookmark JSON tree.
type node struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Children []node `json:"children"`
}

type bookmarkFile struct {
	Roots map[string]node `json:"roots"`
}

// candidatePaths returns the bookmark file locations to probe, most likely
// first. The environment override short-circuits the platform list.
func candidatePaths() []string {
	if p := os.Getenv(EnvPathOverride); p != "" {
		return []string{p}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	switch runtime.GOOS {
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		return []string{
			filepath.Join(local, "Google", "Chrome", "User Data", "Default", "Bookmarks"),
			filepath.Join(local, "Microsoft", "Edge", "User Data", "Default", "Bookmarks"),
			filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data", "Default", "Bookmarks"),
			filepath.Join(local, "Chromium", "User Data", "Default", "Bookmarks"),
		}
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(support, "Google", "Chrome", "Default", "Bookmarks"),
			filepath.Join(support, "BraveSoftware", "Brave-Browser", "Default", "Bookmarks"),
			filepath.Join(support, "Microsoft Edge", "Default", "Bookmarks"),
			filepath.Join(support, "Chromium", "Default", "Bookmarks"),
		}
	default:
		cfg := filepath.Join(home, ".config")
		return []string{
			filepath.Join(cfg, "google-chrome", "Default", "Bookmarks"),
			filepath.Join(cfg, "chromium", "Default", "Bookmarks"),
			filepath.Join(cfg, "brave", "Default", "Bookmarks"),
			filepath.Join(cfg, "microsoft-edge", "Default", "Bookmarks"),
		}
	}
}

// Load reads the first readable bookmark file from the platform's candidate
// locations. An explicit path skips the search.
func Load(path string) ([]Bookmark, error) {
	candidates := []string{path}
	if path == "" {
		candidates = candidatePaths()
	}

	var lastErr error
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		list, err := Parse(data)
		if err != nil {
			lastErr = err
			continue
		}
		return list, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: last error: %v", ErrNoBookmarkFile, lastErr)
	}
	return nil, ErrNoBookmarkFile
}

// Parse extracts the flat bookmark list from Chromium bookmark JSON.
func Parse(data []byte) ([]Bookmark, error) {
	var bf bookmarkFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("bookmarks: parse bookmark file: %w", err)
	}

	var out []Bookmark
	// The well-known roots come first so source order is stable across runs.
	for _, key := range []string{"bookmark_bar", "other", "synced"} {
		if root, ok := bf.Roots[key]; ok {
			walk(root, key, &out)
		}
	}
	if len(out) == 0 {
		for key, root := range bf.Roots {
			switch key {
			case "bookmark_bar", "other", "synced":
				continue
			}
			walk(root, key, &out)
		}
	}
	return out, nil
}

// walk flattens the bookmark tree depth-first, preserving file order.
func walk(n node, folder string, out *[]Bookmark) {
	if n.Type == "url" {
		*out = append(*out, Bookmark{Name: n.Name, URL: n.URL, Folder: strings.Trim(folder, " >")})
		return
	}
	if n.Type == "folder" || len(n.Children) > 0 {
		next := folder
		if n.Name != "" {
			next = folder + " > " + n.Name
		}
		for _, c := range n.Children {
			walk(c, next, out)
		}
	}
}

// Find resolves query against list using tiered matching: exact title, then
// title substring, then URL substring, then per-token match against name and
// URL combined. The first tier with at least one hit wins, and within a tier
// the first bookmark in source order is returned.
func Find(list []Bookmark, query string) (Bookmark, MatchTier, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Bookmark{}, "", fmt.Errorf("bookmarks: empty query")
	}

	for _, b := range list {
		if strings.ToLower(b.Name) == q {
			return b, MatchExactTitle, nil
		}
	}
	for _, b := range list {
		if strings.Contains(strings.ToLower(b.Name), q) {
			return b, MatchTitleContains, nil
		}
	}
	for _, b := range list {
		if strings.Contains(strings.ToLower(b.URL), q) {
			return b, MatchURLContains, nil
		}
	}
	for _, tok := range strings.Fields(q) {
		for _, b := range list {
			haystack := strings.ToLower(b.Name + " " + b.URL)
			if strings.Contains(haystack, tok) {
				return b, MatchTokenPartial, nil
			}
		}
	}
	return Bookmark{}, "", ErrNoMatch
}

// Suggest returns the bookmark whose title is phonetically closest to query,
// for a "did you mean" hint when [Find] comes up empty. ok is false when the
// list is empty or nothing scores above a usefulness floor.
func Suggest(list []Bookmark, query string) (Bookmark, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(list) == 0 {
		return Bookmark{}, false
	}

	const floor = 0.75
	best := Bookmark{}
	bestScore := floor
	for _, b := range list {
		score := matchr.JaroWinkler(q, strings.ToLower(b.Name), false)
		if score > bestScore {
			best = b
			bestScore = score
		}
	}
	if best.URL == "" {
		return Bookmark{}, false
	}
	return best, true
}
