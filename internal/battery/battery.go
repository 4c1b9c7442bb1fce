package battery

import (
	"context"
	"errors"
	"runtime"
)

// ErrUnavailable is returned by readers whose hardware or tool is missing on
// this platform.
var ErrUnavailable = errors.New("battery: reader unavailable on this platform")

// Status is the charge of one battery-powered device.
type Status struct {
	// Device is the product name, e.g. "Magic Mouse".
	Device string `json:"device"`
	// Percent is the battery level in 0–100%.
	Percent int `json:"percent"`
	// VoltageMv is the battery voltage in millivolts, if known.
	VoltageMv int `json:"voltage_mv,omitempty"`
}

// Reader abstracts how we obtain battery information: ioreg on macOS, an I2C
// fuel gauge on a Raspberry Pi, or a mock for development.
type Reader interface {
	Read(ctx context.Context) ([]Status, error)
}

// BelowThreshold returns the statuses whose charge is strictly below warn, in
// input order.
func BelowThreshold(statuses []Status, warn int) []Status {
	out := make([]Status, 0)
	for _, s := range statuses {
		if s.Percent < warn {
			out = append(out, s)
		}
	}
	return out
}

// DefaultReader returns the Reader that should be used by the main program.
//
// Priority:
//  1. darwin: ioreg (Bluetooth HID devices)
//  2. linux: I2C fuel gauge when it answers a probe read
//  3. otherwise the mock reader
func DefaultReader(ctx context.Context) Reader {
	switch runtime.GOOS {
	case "darwin":
		return NewIORegReader()
	case "linux":
		r := NewI2CReader("", DefaultI2CAddr)
		if _, err := r.Read(ctx); err == nil {
			return r
		}
	}
	return NewMockReader()
}
