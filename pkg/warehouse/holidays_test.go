package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestEasterSunday(t *testing.T) {
	cases := map[int]string{
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
		2027: "2027-03-28",
	}
	for year, want := range cases {
		got := easterSunday(year).Format("2006-01-02")
		assert.Equal(t, want, got, "easter %d", year)
	}
}

func TestZAHolidayFixedDates(t *testing.T) {
	name, ok := zaHoliday(mustDate(t, "2026-06-16"))
	assert.True(t, ok)
	assert.Equal(t, "Youth Day", name)

	name, ok = zaHoliday(mustDate(t, "2026-12-25"))
	assert.True(t, ok)
	assert.Equal(t, "Christmas Day", name)

	_, ok = zaHoliday(mustDate(t, "2026-02-03"))
	assert.False(t, ok)
}

func TestZAHolidayEasterDerived(t *testing.T) {
	// Easter 2026 falls on April 5.
	name, ok := zaHoliday(mustDate(t, "2026-04-03"))
	assert.True(t, ok)
	assert.Equal(t, "Good Friday", name)

	name, ok = zaHoliday(mustDate(t, "2026-04-06"))
	assert.True(t, ok)
	assert.Equal(t, "Family Day", name)
}

func TestZAHolidaySundayObservedMonday(t *testing.T) {
	// Human Rights Day 2027 (March 21) is a Sunday.
	require.Equal(t, time.Sunday, mustDate(t, "2027-03-21").Weekday())

	name, ok := zaHoliday(mustDate(t, "2027-03-22"))
	assert.True(t, ok)
	assert.Equal(t, "Human Rights Day (observed)", name)
}
