package battery

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ioregSample = `+-o AppleHSBluetoothInterface  <class AppleHSBluetoothInterface, id 0x100000a1b>
    {
      "BatteryPercent" = 3
      "Product" = "Magic Mouse 2"
      "BatteryPercent" = 18
      "VersionNumber" = 273
    }
+-o AppleHSBluetoothInterface  <class AppleHSBluetoothInterface, id 0x100000a2c>
    {
      "Product" = "Nick's Magic Keyboard"
      "batterypercent" = 71
    }
+-o AppleHSBluetoothInterface  <class AppleHSBluetoothInterface, id 0x100000a3d>
    {
      "Product" = "Magic Mouse 2"
      "BatteryPercent" = 17
    }
`

func TestParseIOReg(t *testing.T) {
	got := ParseIOReg(ioregSample)

	assert.Equal(t, []Status{
		{Device: "Magic Mouse 2", Percent: 17},
		{Device: "Nick's Magic Keyboard", Percent: 71},
	}, got)
}

func TestParseIOReg_NoDevices(t *testing.T) {
	got := ParseIOReg("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIORegReader_Read(t *testing.T) {
	var gotArgs []string
	r := &IORegReader{run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(ioregSample), nil
	}}

	statuses, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.Equal(t, []string{"ioreg", "-rlc", "AppleHSBluetoothInterface"}, gotArgs)

	r.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "ioreg", Err: exec.ErrNotFound}
	}
	_, err = r.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	r.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	_, err = r.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestBelowThreshold(t *testing.T) {
	statuses := []Status{
		{Device: "Mouse", Percent: 24},
		{Device: "Keyboard", Percent: 25},
		{Device: "Trackpad", Percent: 3},
	}

	low := BelowThreshold(statuses, 25)
	require.Len(t, low, 2)
	assert.Equal(t, "Mouse", low[0].Device)
	assert.Equal(t, "Trackpad", low[1].Device)

	assert.Empty(t, BelowThreshold(statuses, 0))
}

type fakeBus map[byte]byte

func (f fakeBus) Tx(w, r []byte) error {
	v, ok := f[w[0]]
	if !ok {
		return errors.New("nack")
	}
	r[0] = v
	return nil
}

func TestReadGauge(t *testing.T) {
	got, err := readGauge(fakeBus{regVoltageHigh: 0x0F, regVoltageLow: 0xA0, regPercent: 130}, "PiSugar")
	require.NoError(t, err)
	assert.Equal(t, []Status{{Device: "PiSugar", Percent: 100, VoltageMv: 4000}}, got)

	_, err = readGauge(fakeBus{regVoltageHigh: 0x0F}, "PiSugar")
	assert.ErrorContains(t, err, "0x23")
}

func TestMockReader(t *testing.T) {
	statuses, err := NewMockReader("A", "B", "C").Read(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.GreaterOrEqual(t, s.Percent, 20)
		assert.LessOrEqual(t, s.Percent, 100)
	}
}
