package battery

import (
	"context"
	"fmt"
	"runtime"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultI2CAddr is the PiSugar fuel gauge address.
const DefaultI2CAddr = 0x57

const (
	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// I2CReader talks to a PiSugar-style battery controller over I2C:
//   - 0x22 (high), 0x23 (low): battery voltage in millivolts
//   - 0x2A: battery percentage (0–100)
type I2CReader struct {
	busName string
	addr    uint16
	device  string
}

// NewI2CReader constructs an I2C-backed Reader. busName "" selects the
// default bus (typically /dev/i2c-1 on a Raspberry Pi). Connection and
// host.Init happen on every Read.
func NewI2CReader(busName string, addr uint16) *I2CReader {
	return &I2CReader{
		busName: busName,
		addr:    addr,
		device:  "PiSugar",
	}
}

// Read returns a single status for the attached battery.
func (r *I2CReader) Read(_ context.Context) ([]Status, error) {
	if runtime.GOOS != "linux" {
		return nil, ErrUnavailable
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("battery: periph init: %w", err)
	}

	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return nil, fmt.Errorf("battery: open i2c bus %q: %w", r.busName, err)
	}
	defer bus.Close()

	dev := &i2c.Dev{Bus: bus, Addr: r.addr}
	return readGauge(dev, r.device)
}

// readGauge reads voltage and percent registers through tx.
func readGauge(tx interface{ Tx(w, r []byte) error }, device string) ([]Status, error) {
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := tx.Tx([]byte{reg}, buf); err != nil {
			return 0, fmt.Errorf("battery: read register 0x%02X: %w", reg, err)
		}
		return buf[0], nil
	}

	high, err := readReg(regVoltageHigh)
	if err != nil {
		return nil, err
	}
	low, err := readReg(regVoltageLow)
	if err != nil {
		return nil, err
	}
	pct, err := readReg(regPercent)
	if err != nil {
		return nil, err
	}
	if pct > 100 {
		pct = 100
	}

	return []Status{{
		Device:    device,
		Percent:   int(pct),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}}, nil
}
