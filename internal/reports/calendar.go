package reports

import "time"

// MonthGrid returns the weeks of a month as rows of seven day numbers,
// Monday first, with zeroes padding days that fall outside the month.
// Pure calendrical function, independent of attendance data.
func MonthGrid(year int, month time.Month) [][]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7 // Monday = 0
	days := DaysInMonth(year, month)

	var grid [][]int
	week := make([]int, 7)
	idx := offset
	for day := 1; day <= days; day++ {
		week[idx] = day
		idx++
		if idx == 7 {
			grid = append(grid, week)
			week = make([]int, 7)
			idx = 0
		}
	}
	if idx > 0 {
		grid = append(grid, week)
	}
	return grid
}

// DaysInMonth returns the number of days in the month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthNav carries the prev/next month links and selector choices for
// calendar-style views.
type MonthNav struct {
	PrevMonth int   `json:"prev_month"`
	PrevYear  int   `json:"prev_year"`
	NextMonth int   `json:"next_month"`
	NextYear  int   `json:"next_year"`
	Years     []int `json:"years"`
}

func monthNav(year int, month time.Month, currentYear int) MonthNav {
	nav := MonthNav{
		PrevMonth: int(month) - 1, PrevYear: year,
		NextMonth: int(month) + 1, NextYear: year,
	}
	if month == time.January {
		nav.PrevMonth, nav.PrevYear = 12, year-1
	}
	if month == time.December {
		nav.NextMonth, nav.NextYear = 1, year+1
	}
	for y := currentYear - 2; y <= currentYear; y++ {
		nav.Years = append(nav.Years, y)
	}
	return nav
}
