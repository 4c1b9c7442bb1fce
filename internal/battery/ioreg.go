package battery

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ioregClass is the IOKit class of Apple Bluetooth HID interfaces.
const ioregClass = "AppleHSBluetoothInterface"

var ioregPair = regexp.MustCompile(`(?i)"(Product|BatteryPercent)" = ([0-9]{1,3}|".*?")`)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// IORegReader lists Bluetooth device charge from the macOS I/O Registry.
type IORegReader struct {
	run commandRunner
}

func NewIORegReader() *IORegReader {
	return &IORegReader{run: execOutput}
}

// Read runs `ioreg -rlc AppleHSBluetoothInterface` and parses its output. No
// connected devices yields an empty slice.
func (r *IORegReader) Read(ctx context.Context) ([]Status, error) {
	out, err := r.run(ctx, "ioreg", "-rlc", ioregClass)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("battery: ioreg: %w", err)
	}
	return ParseIOReg(string(out)), nil
}

// ParseIOReg extracts device names and charge levels from ioreg output. Each
// "BatteryPercent" belongs to the most recent "Product" above it; a device
// listed twice keeps its first position and its last reading.
func ParseIOReg(out string) []Status {
	matches := ioregPair.FindAllStringSubmatch(out, -1)

	statuses := make([]Status, 0)
	index := make(map[string]int)
	device := ""
	for _, m := range matches {
		switch strings.ToLower(m[1]) {
		case "product":
			device = strings.Trim(m[2], `"`)
		case "batterypercent":
			if device == "" {
				continue
			}
			pct, err := strconv.Atoi(strings.Trim(m[2], `"`))
			if err != nil {
				continue
			}
			if i, ok := index[device]; ok {
				statuses[i].Percent = pct
				continue
			}
			index[device] = len(statuses)
			statuses = append(statuses, Status{Device: device, Percent: pct})
		}
	}
	return statuses
}
