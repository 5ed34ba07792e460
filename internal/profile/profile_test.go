package profile

import (
	"path/filepath"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "profile.json"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p := s.Current()
	if p.DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty", p.DisplayName)
	}
	if len(p.ActionCounts) != 0 {
		t.Errorf("ActionCounts = %v, want empty", p.ActionCounts)
	}
}

func TestRecordActionPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for range 2 {
		if err := s.RecordAction("open"); err != nil {
			t.Fatalf("RecordAction() error = %v", err)
		}
	}
	if err := s.SetDisplayName("Ada"); err != nil {
		t.Fatalf("SetDisplayName() error = %v", err)
	}

	// Reopen to prove the state survived the process boundary.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() reload error = %v", err)
	}
	p := s2.Current()
	if got := p.ActionCounts["open"]; got != 2 {
		t.Errorf("ActionCounts[open] = %d, want 2", got)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q", p.DisplayName, "Ada")
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "profile.json"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.RecordAction("search"); err != nil {
		t.Fatalf("RecordAction() error = %v", err)
	}
	p := s.Current()
	p.ActionCounts["search"] = 99
	if got := s.Current().ActionCounts["search"]; got != 1 {
		t.Errorf("ActionCounts[search] after external mutation = %d, want 1", got)
	}
}

func TestExtractName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantName string
		wantOK   bool
	}{
		{name: "my name is", text: "hello, my name is Ada", wantName: "Ada", wantOK: true},
		{name: "call me", text: "please call me Grace today", wantName: "Grace", wantOK: true},
		{name: "contraction", text: "i'm Linus", wantName: "Linus", wantOK: true},
		{name: "apostrophe surname start", text: "i am O'Brien", wantName: "O'Brien", wantOK: true},
		{name: "lowercase rejected", text: "i am sure about that", wantOK: false},
		{name: "no introduction", text: "open the browser", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractName(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractName(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.wantName {
				t.Errorf("ExtractName(%q) = %q, want %q", tt.text, got, tt.wantName)
			}
		})
	}
}
