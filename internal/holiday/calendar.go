// Package holiday provides industry-agnostic holiday date calculations: which
// named holidays and multi-day periods cover a given day. It makes no
// assumptions about their business impact; callers attach multipliers by name.
package holiday

import (
	"sort"
	"time"
)

// Calendar computes major US holidays and shopping periods for any year.
type Calendar struct{}

func NewCalendar() Calendar {
	return Calendar{}
}

// Major returns the single-day holidays of a year, keyed by name.
func (Calendar) Major(year int) map[string]time.Time {
	thanksgiving := nthWeekday(year, time.November, time.Thursday, 4)

	return map[string]time.Time{
		"new_years_day":    date(year, time.January, 1),
		"valentines_day":   date(year, time.February, 14),
		"independence_day": date(year, time.July, 4),
		"halloween":        date(year, time.October, 31),
		"christmas_eve":    date(year, time.December, 24),
		"christmas_day":    date(year, time.December, 25),
		"new_years_eve":    date(year, time.December, 31),

		"mothers_day": nthWeekday(year, time.May, time.Sunday, 2),
		"fathers_day": nthWeekday(year, time.June, time.Sunday, 3),
		"labor_day":   nthWeekday(year, time.September, time.Monday, 1),

		"thanksgiving": thanksgiving,
		"black_friday": thanksgiving.AddDate(0, 0, 1),
		"cyber_monday": thanksgiving.AddDate(0, 0, 4),
	}
}

// Period is an inclusive date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// Periods returns the multi-day holiday periods of a year, keyed by name.
func (c Calendar) Periods(year int) map[string]Period {
	holidays := c.Major(year)
	thanksgiving := holidays["thanksgiving"]
	valentines := holidays["valentines_day"]
	mothersDay := holidays["mothers_day"]

	return map[string]Period{
		"back_to_school":     {date(year, time.August, 15), date(year, time.September, 15)},
		"black_friday_week":  {thanksgiving.AddDate(0, 0, -1), holidays["cyber_monday"]},
		"christmas_shopping": {date(year, time.December, 1), date(year, time.December, 23)},
		"post_christmas":     {date(year, time.December, 26), date(year+1, time.January, 2)},
		"valentines_week":    {valentines.AddDate(0, 0, -3), valentines.AddDate(0, 0, 1)},
		"mothers_day_week":   {mothersDay.AddDate(0, 0, -3), mothersDay.AddDate(0, 0, 1)},
		"summer_holidays":    {date(year, time.June, 15), date(year, time.August, 15)},
		"year_end_holidays":  {date(year, time.December, 20), date(year+1, time.January, 5)},
	}
}

// ActiveHolidays returns every holiday and period covering day, sorted by
// name for deterministic output. Periods spilling over from the previous year
// (e.g. post_christmas) are included.
func (c Calendar) ActiveHolidays(day time.Time) []string {
	day = truncate(day)
	var active []string

	for name, holidayDate := range c.Major(day.Year()) {
		if day.Equal(holidayDate) {
			active = append(active, name)
		}
	}

	for _, year := range []int{day.Year() - 1, day.Year()} {
		for name, period := range c.Periods(year) {
			if !day.Before(period.Start) && !day.After(period.End) {
				active = append(active, name)
			}
		}
	}

	sort.Strings(active)
	return dedupe(active)
}

// IsHoliday reports whether day matches the named single-day holiday.
func (c Calendar) IsHoliday(day time.Time, name string) bool {
	holidayDate, ok := c.Major(day.Year())[name]
	return ok && truncate(day).Equal(holidayDate)
}

// IsWeekend reports whether day falls on Saturday or Sunday.
func (Calendar) IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func truncate(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}

// nthWeekday returns the nth occurrence of a weekday in a month. If the nth
// occurrence spills into the next month the previous one is used.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	target := first.AddDate(0, 0, offset+(n-1)*7)
	if target.Month() != month {
		target = target.AddDate(0, 0, -7)
	}
	return target
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}
