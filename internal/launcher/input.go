package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Input simulates keyboard and mouse events through the platform's scripting
// tool: xdotool on Linux, osascript on macOS, PowerShell SendKeys on Windows.
type Input struct {
	goos string

	// run executes the scripting tool. Overridable for tests.
	run func(ctx context.Context, name string, args ...string) error
}

// InputOption is a functional option for configuring an Input.
type InputOption func(*Input)

// WithInputRunner overrides tool execution, for tests.
func WithInputRunner(fn func(ctx context.Context, name string, args ...string) error) InputOption {
	return func(in *Input) { in.run = fn }
}

// NewInput constructs an Input for the current platform.
func NewInput(opts ...InputOption) *Input {
	in := &Input{
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// TypeText types text into the focused window.
func (in *Input) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	var err error
	switch in.goos {
	case "darwin":
		script := fmt.Sprintf("tell application %q to keystroke %q", "System Events", text)
		err = in.run(ctx, "osascript", "-e", script)
	case "windows":
		script := fmt.Sprintf(`$w = New-Object -ComObject wscript.shell; $w.SendKeys(%s)`, psQuote(text))
		err = in.run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		err = in.run(ctx, "xdotool", "type", "--delay", "30", "--", text)
	}
	if err != nil {
		return fmt.Errorf("launcher: type text: %w", err)
	}
	return nil
}

// PressKey presses a single named key (e.g. "enter", "tab", "escape").
func (in *Input) PressKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("launcher: no key provided")
	}
	var err error
	switch in.goos {
	case "darwin":
		script := fmt.Sprintf("tell application %q to key code %s", "System Events", macKeyCode(key))
		err = in.run(ctx, "osascript", "-e", script)
	case "windows":
		script := fmt.Sprintf(`$w = New-Object -ComObject wscript.shell; $w.SendKeys(%s)`, psQuote(winKeyToken(key)))
		err = in.run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		err = in.run(ctx, "xdotool", "key", "--", xdoKeyName(key))
	}
	if err != nil {
		return fmt.Errorf("launcher: press key %q: %w", key, err)
	}
	return nil
}

// Click moves the pointer to (x, y) and performs a left click.
func (in *Input) Click(ctx context.Context, x, y int) error {
	var err error
	switch in.goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to click at {%d, %d}`, x, y)
		err = in.run(ctx, "osascript", "-e", script)
	case "windows":
		script := fmt.Sprintf(
			`Add-Type -AssemblyName System.Windows.Forms; `+
				`[System.Windows.Forms.Cursor]::Position = New-Object System.Drawing.Point(%d, %d); `+
				`$sig='[DllImport("user32.dll")]public static extern void mouse_event(int f,int x,int y,int d,int e);'; `+
				`$m=Add-Type -MemberDefinition $sig -Name M -Namespace W32 -PassThru; $m::mouse_event(2,0,0,0,0); $m::mouse_event(4,0,0,0,0)`,
			x, y)
		err = in.run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		err = in.run(ctx, "xdotool", "mousemove", fmt.Sprint(x), fmt.Sprint(y), "click", "1")
	}
	if err != nil {
		return fmt.Errorf("launcher: click at %d,%d: %w", x, y, err)
	}
	return nil
}

// xdoKeyName maps spoken key names to xdotool keysyms.
func xdoKeyName(key string) string {
	switch strings.ToLower(key) {
	case "enter", "return":
		return "Return"
	case "tab":
		return "Tab"
	case "escape", "esc":
		return "Escape"
	case "space":
		return "space"
	case "backspace":
		return "BackSpace"
	case "delete":
		return "Delete"
	case "up":
		return "Up"
	case "down":
		return "Down"
	case "left":
		return "Left"
	case "right":
		return "Right"
	default:
		return key
	}
}

// winKeyToken maps spoken key names to SendKeys tokens.
func winKeyToken(key string) string {
	switch strings.ToLower(key) {
	case "enter", "return":
		return "{ENTER}"
	case "tab":
		return "{TAB}"
	case "escape", "esc":
		return "{ESC}"
	case "space":
		return " "
	case "backspace":
		return "{BACKSPACE}"
	case "delete":
		return "{DELETE}"
	case "up":
		return "{UP}"
	case "down":
		return "{DOWN}"
	case "left":
		return "{LEFT}"
	case "right":
		return "{RIGHT}"
	default:
		return key
	}
}

// macKeyCode maps spoken key names to macOS virtual key codes.
func macKeyCode(key string) string {
	switch strings.ToLower(key) {
	case "enter", "return":
		return "36"
	case "tab":
		return "48"
	case "escape", "esc":
		return "53"
	case "space":
		return "49"
	case "backspace", "delete":
		return "51"
	case "up":
		return "126"
	case "down":
		return "125"
	case "left":
		return "123"
	case "right":
		return "124"
	default:
		return "36"
	}
}

// psQuote single-quotes s for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
