package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	base := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		n    int
		unit Unit
		want time.Time
	}{
		{"one day", 1, Day, time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)},
		{"negative days", -31, Day, time.Date(2023, 12, 31, 9, 30, 0, 0, time.UTC)},
		{"two weeks", 2, Week, time.Date(2024, 2, 14, 9, 30, 0, 0, time.UTC)},
		{"month overflows into march", 1, Month, time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)},
		{"twelve months", 12, Month, time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)},
		{"one year", 1, Year, time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(base, tt.n, tt.unit)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestAdd_OutOfRange(t *testing.T) {
	late := time.Date(9999, 12, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(1, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := Add(late, 1, Month)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Add(early, -1, Month)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Add(early, 1<<40, Day)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Add(early, 20000, Year)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestWeekOfMonth(t *testing.T) {
	for day, want := range map[int]int{1: 1, 7: 1, 8: 2, 14: 2, 15: 3, 21: 3, 22: 4, 28: 4, 29: 5, 31: 5} {
		got := WeekOfMonth(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, want, got, "day %d", day)
	}
}

func TestSecondsBetween_LongSpan(t *testing.T) {
	a := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	// time.Time.Sub would saturate here.
	assert.Equal(t, b.Unix()-a.Unix(), SecondsBetween(a, b))
	assert.Greater(t, SecondsBetween(a, b), int64(0))
	assert.Equal(t, 1, DayOfYear(b))
}
