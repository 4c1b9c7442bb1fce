package battery

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MockReader is used for demo/development. It reports pseudo-random charge
// levels between 20% and 100% for a fixed set of devices.
type MockReader struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	devices []string
}

// NewMockReader returns a MockReader for devices, or for a mouse and a
// keyboard when none are given.
func NewMockReader(devices ...string) *MockReader {
	if len(devices) == 0 {
		devices = []string{"Magic Mouse", "Magic Keyboard"}
	}
	return &MockReader{
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		devices: devices,
	}
}

func (m *MockReader) Read(_ context.Context) ([]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, Status{Device: d, Percent: 20 + m.rnd.Intn(81)}) // 20..100 inclusive
	}
	return out, nil
}
