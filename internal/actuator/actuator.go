// Package actuator drives the robot head hardware: five hobby servos behind
// a PCA9685 PWM controller and two RGB eye LEDs.
//
// The process usually runs on a desktop with no head attached, so the
// default Driver just logs intents. A real PWM backend plugs in through the
// [PWM] interface without changing any caller.
package actuator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ServoCal is one servo's calibration: its PWM channel and pulse range.
type ServoCal struct {
	// Channel is the PCA9685 output channel.
	Channel int `json:"channel"`

	// Min and Max are the pulse counts mapped to 0 and 180 degrees.
	Min int `json:"min"`
	Max int `json:"max"`

	// ZeroDeg is the rest position in degrees.
	ZeroDeg int `json:"zero_deg"`
}

// DefaultCalibration returns the factory servo table: neck horizontal and
// vertical, eye vertical and horizontal, and mouth.
func DefaultCalibration() map[string]ServoCal {
	return map[string]ServoCal{
		"NH": {Channel: 0, Min: 200, Max: 584, ZeroDeg: 90},
		"NV": {Channel: 1, Min: 230, Max: 520, ZeroDeg: 90},
		"EV": {Channel: 2, Min: 150, Max: 430, ZeroDeg: 90},
		"EH": {Channel: 3, Min: 160, Max: 320, ZeroDeg: 90},
		"M":  {Channel: 4, Min: 160, Max: 300, ZeroDeg: 90},
	}
}

// eyeChannels maps LED legs to PWM channels for both eyes.
var eyeChannels = map[string]int{
	"R1": 5, "G1": 6, "B1": 7,
	"R2": 8, "G2": 9, "B2": 10,
}

// PWM abstracts the PWM controller.
type PWM interface {
	// Set drives channel to value (0..4095).
	Set(channel, value int) error
}

// Compile-time assertion that NopPWM satisfies PWM.
var _ PWM = (*NopPWM)(nil)

// NopPWM discards writes. Used when no head hardware is attached.
type NopPWM struct{}

// Set implements [PWM].
func (NopPWM) Set(channel, value int) error { return nil }

// Driver moves servos and sets eye colors. Safe for concurrent use.
type Driver struct {
	log *slog.Logger
	pwm PWM

	mu  sync.RWMutex
	cal map[string]ServoCal
}

// Option is a functional option for configuring a Driver.
type Option func(*Driver)

// WithLogger attaches a logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithPWM attaches a real PWM backend. Default is [NopPWM].
func WithPWM(pwm PWM) Option {
	return func(d *Driver) { d.pwm = pwm }
}

// WithCalibration replaces the factory servo table.
func WithCalibration(cal map[string]ServoCal) Option {
	return func(d *Driver) { d.cal = cal }
}

// New constructs a Driver with the factory calibration.
func New(opts ...Option) *Driver {
	d := &Driver{
		log: slog.Default(),
		pwm: NopPWM{},
		cal: DefaultCalibration(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// LoadCalibration merges servo entries from a JSON file over the factory
// table. Unknown servos in the file are added; missing ones keep defaults.
func (d *Driver) LoadCalibration(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("actuator: read calibration %q: %w", path, err)
	}
	var loaded map[string]ServoCal
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("actuator: parse calibration %q: %w", path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for name, cal := range loaded {
		d.cal[name] = cal
	}
	return nil
}

// SaveCalibration writes the current servo table to a JSON file.
func (d *Driver) SaveCalibration(path string) error {
	d.mu.RLock()
	data, err := json.MarshalIndent(d.cal, "", "  ")
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("actuator: marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("actuator: write calibration %q: %w", path, err)
	}
	return nil
}

// Servos returns the names of all calibrated servos.
func (d *Driver) Servos() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.cal))
	for name := range d.cal {
		names = append(names, name)
	}
	return names
}

// MoveServo moves the named servo to deg. Degrees outside [0,180] are
// clamped rather than rejected; a spoken "move NH to 200" should still move
// the head as far as it goes.
func (d *Driver) MoveServo(name string, deg int) error {
	d.mu.RLock()
	cal, ok := d.cal[name]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("actuator: unknown servo %q", name)
	}

	if deg < 0 {
		deg = 0
	}
	if deg > 180 {
		deg = 180
	}
	pulse := cal.Min + (cal.Max-cal.Min)*deg/180

	d.log.Info("moving servo", "servo", name, "deg", deg, "channel", cal.Channel, "pulse", pulse)
	if err := d.pwm.Set(cal.Channel, pulse); err != nil {
		return fmt.Errorf("actuator: move servo %q: %w", name, err)
	}
	return nil
}

// SetEyeColor drives both eye LEDs to the given 8-bit RGB color.
func (d *Driver) SetEyeColor(r, g, b int) error {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return v
	}
	r, g, b = clamp(r), clamp(g), clamp(b)

	d.log.Info("setting eye color", "r", r, "g", g, "b", b)
	values := map[string]int{
		"R1": r, "G1": g, "B1": b,
		"R2": r, "G2": g, "B2": b,
	}
	for leg, v := range values {
		// Scale 8-bit color to the 12-bit PWM range.
		if err := d.pwm.Set(eyeChannels[leg], v*4095/255); err != nil {
			return fmt.Errorf("actuator: set eye channel %s: %w", leg, err)
		}
	}
	return nil
}
