package launcher

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunnerRunCapturesOutput(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	res, err := r.Run(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hi" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hi")
	}
}

func TestRunnerRunMetacharactersAreLiteralArgs(t *testing.T) {
	t.Parallel()

	// Without a shell in the path, ";" is just another argument to echo,
	// so the trailing command never executes.
	r := NewRunner()
	res, err := r.Run(context.Background(), "echo hi; rm -rf /")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	got := strings.TrimSpace(res.Stdout)
	if !strings.Contains(got, ";") || !strings.Contains(got, "rm") {
		t.Errorf("Stdout = %q, want the metacharacters echoed back literally", res.Stdout)
	}
}

func TestRunnerRunEmptyCommand(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	res, err := r.Run(context.Background(), "   ")
	if err == nil {
		t.Fatal("Run() error = nil, want error for empty command")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRunnerRunTimeout(t *testing.T) {
	t.Parallel()

	r := NewRunner(WithTimeout(50 * time.Millisecond))
	_, err := r.Run(context.Background(), "sleep 5")
	if err == nil {
		t.Fatal("Run() error = nil, want timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Run() error = %v, want timeout", err)
	}
}
