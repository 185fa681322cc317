package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthGrid(t *testing.T) {
	// March 2026 starts on a Sunday and has 31 days.
	grid := MonthGrid(2026, time.March)
	require.Len(t, grid, 6)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 1}, grid[0])
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, grid[1])
	assert.Equal(t, []int{30, 31, 0, 0, 0, 0, 0}, grid[5])

	// June 2026 starts on a Monday: no leading padding.
	grid = MonthGrid(2026, time.June)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, grid[0])

	// February 2027 is a perfect 4-week month starting Monday.
	grid = MonthGrid(2027, time.February)
	require.Len(t, grid, 4)
	assert.Equal(t, []int{22, 23, 24, 25, 26, 27, 28}, grid[3])
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2026, time.January))
	assert.Equal(t, 28, DaysInMonth(2026, time.February))
	assert.Equal(t, 29, DaysInMonth(2028, time.February))
	assert.Equal(t, 30, DaysInMonth(2026, time.April))
}

func TestMonthNavWraps(t *testing.T) {
	nav := monthNav(2026, time.January, 2026)
	assert.Equal(t, 12, nav.PrevMonth)
	assert.Equal(t, 2025, nav.PrevYear)
	assert.Equal(t, 2, nav.NextMonth)
	assert.Equal(t, 2026, nav.NextYear)

	nav = monthNav(2026, time.December, 2026)
	assert.Equal(t, 11, nav.PrevMonth)
	assert.Equal(t, 1, nav.NextMonth)
	assert.Equal(t, 2027, nav.NextYear)

	assert.Equal(t, []int{2024, 2025, 2026}, nav.Years)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(5, 0), "zero denominator yields 0, not NaN")
	assert.Equal(t, 100.0, Percent(3, 3))
	assert.Equal(t, 66.67, Percent(2, 3))
	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Equal(t, 0.0, Percent(0, 10))
}
