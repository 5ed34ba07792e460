package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// defaultRunTimeout bounds a command's runtime. Whitelisted commands are all
// quick diagnostics; anything slower is stuck.
const defaultRunTimeout = 30 * time.Second

// RunResult captures one command's outcome.
type RunResult struct {
	// ExitCode is the process exit status. -1 when the process never ran or
	// was killed.
	ExitCode int

	// Stdout and Stderr hold the captured output streams.
	Stdout string
	Stderr string
}

// Runner executes whitelisted commands. The whitelist decision itself lives
// with the command grammar; Runner only runs what it is given — but it never
// hands the line to a shell, so metacharacters like ";" or "|" are plain
// arguments, not operators. "echo hi; rm -rf /" echoes literally.
type Runner struct {
	timeout time.Duration
}

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*Runner)

// WithTimeout overrides the per-command timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner constructs a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{timeout: defaultRunTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run splits cmdline on whitespace and executes it directly, capturing its
// output. A non-zero exit is not an error; callers read RunResult.ExitCode.
// Errors mean the process could not run or exceeded the timeout.
func (r *Runner) Run(ctx context.Context, cmdline string) (RunResult, error) {
	argv := strings.Fields(cmdline)
	if len(argv) == 0 {
		return RunResult{ExitCode: -1}, fmt.Errorf("launcher: empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("launcher: command timed out: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The command ran; the exit code carries the verdict.
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("launcher: run command: %w", err)
	}
	return res, nil
}
