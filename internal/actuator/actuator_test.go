package actuator

import (
	"path/filepath"
	"sync"
	"testing"
)

// fakePWM records channel writes.
type fakePWM struct {
	mu     sync.Mutex
	writes map[int]int
}

func newFakePWM() *fakePWM {
	return &fakePWM{writes: map[int]int{}}
}

func (f *fakePWM) Set(channel, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[channel] = value
	return nil
}

func TestMoveServoMapsDegreesToPulse(t *testing.T) {
	t.Parallel()

	pwm := newFakePWM()
	d := New(WithPWM(pwm))

	tests := []struct {
		name      string
		servo     string
		deg       int
		wantPulse int
	}{
		{name: "zero", servo: "NH", deg: 0, wantPulse: 200},
		{name: "full", servo: "NH", deg: 180, wantPulse: 584},
		{name: "mid", servo: "NH", deg: 90, wantPulse: 392},
		{name: "clamped high", servo: "NV", deg: 300, wantPulse: 520},
		{name: "clamped low", servo: "M", deg: -10, wantPulse: 160},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.MoveServo(tt.servo, tt.deg); err != nil {
				t.Fatalf("MoveServo(%s, %d) error = %v", tt.servo, tt.deg, err)
			}
			cal := DefaultCalibration()[tt.servo]
			pwm.mu.Lock()
			got := pwm.writes[cal.Channel]
			pwm.mu.Unlock()
			if got != tt.wantPulse {
				t.Errorf("MoveServo(%s, %d) pulse = %d, want %d", tt.servo, tt.deg, got, tt.wantPulse)
			}
		})
	}
}

func TestMoveServoUnknownName(t *testing.T) {
	t.Parallel()

	d := New()
	if err := d.MoveServo("XX", 90); err == nil {
		t.Error("MoveServo(XX) error = nil, want error")
	}
}

func TestSetEyeColorDrivesBothEyes(t *testing.T) {
	t.Parallel()

	pwm := newFakePWM()
	d := New(WithPWM(pwm))
	if err := d.SetEyeColor(255, 0, 300); err != nil {
		t.Fatalf("SetEyeColor() error = %v", err)
	}

	pwm.mu.Lock()
	defer pwm.mu.Unlock()
	// Red legs of both eyes at full scale.
	if pwm.writes[5] != 4095 || pwm.writes[8] != 4095 {
		t.Errorf("red channels = %d, %d; want 4095", pwm.writes[5], pwm.writes[8])
	}
	// Green off.
	if pwm.writes[6] != 0 || pwm.writes[9] != 0 {
		t.Errorf("green channels = %d, %d; want 0", pwm.writes[6], pwm.writes[9])
	}
	// Blue clamped from 300 to 255, i.e. full scale.
	if pwm.writes[7] != 4095 || pwm.writes[10] != 4095 {
		t.Errorf("blue channels = %d, %d; want 4095", pwm.writes[7], pwm.writes[10])
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cal.json")
	d := New(WithPWM(newFakePWM()))
	if err := d.SaveCalibration(path); err != nil {
		t.Fatalf("SaveCalibration() error = %v", err)
	}

	custom := DefaultCalibration()
	nh := custom["NH"]
	nh.Min = 100
	custom["NH"] = nh

	d2 := New(WithCalibration(custom), WithPWM(newFakePWM()))
	if err := d2.SaveCalibration(path); err != nil {
		t.Fatalf("SaveCalibration() custom error = %v", err)
	}

	d3 := New(WithPWM(newFakePWM()))
	if err := d3.LoadCalibration(path); err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	d3.mu.RLock()
	got := d3.cal["NH"].Min
	d3.mu.RUnlock()
	if got != 100 {
		t.Errorf("loaded NH.Min = %d, want 100", got)
	}
}
