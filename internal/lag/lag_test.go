package lag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDaysZeroWorkingDaysNotFortyEightThousand(t *testing.T) {
	// Historical bug: code divided days-format lag by 480 (the minutes
	// rate), turning LagFormat=7, LinkLag=0 into 48000 days.
	assert.Equal(t, 0.0, ToDays(0, WorkingDays))
}

func TestToDaysKnownFormats(t *testing.T) {
	assert.Equal(t, 1.0, ToDays(480, WorkingMinutes))
	assert.Equal(t, 1.0, ToDays(1440, ElapsedMinutes))
	assert.Equal(t, 1.0, ToDays(8, WorkingHours))
	assert.Equal(t, 1.0, ToDays(24, ElapsedHours))
	assert.Equal(t, 3.0, ToDays(3, WorkingDays))
	assert.Equal(t, 3.0, ToDays(3, ElapsedDays))
	assert.Equal(t, 10.0, ToDays(2, WorkingWeeks))
	assert.Equal(t, 14.0, ToDays(2, ElapsedWeeks))
	assert.Equal(t, 20.0, ToDays(1, WorkingMonths))
	assert.Equal(t, 30.0, ToDays(1, ElapsedMonths))
}

func TestToDaysUnknownFormatDefaultsToDays(t *testing.T) {
	assert.Equal(t, 7.0, ToDays(7, 999))
}

func TestToDaysNegativeLag(t *testing.T) {
	assert.Equal(t, -3.0, ToDays(-3, WorkingDays))
}

func TestRoundTripAllFormats(t *testing.T) {
	formats := []int{WorkingMinutes, ElapsedMinutes, WorkingHours, ElapsedHours,
		WorkingDays, ElapsedDays, WorkingWeeks, ElapsedWeeks, WorkingMonths, ElapsedMonths}
	for _, f := range formats {
		for _, v := range []int{0, 1, -5, 100, -100} {
			days := ToDays(v, f)
			back := FromDays(days, f)
			assert.Equal(t, v, back, "format %d value %d", f, v)
		}
	}
}
