package warehouse

import "time"

// fixedZAHolidays are the fixed-date South African public holidays.
var fixedZAHolidays = map[[2]int]string{
	{1, 1}:   "New Year's Day",
	{3, 21}:  "Human Rights Day",
	{4, 27}:  "Freedom Day",
	{5, 1}:   "Workers' Day",
	{6, 16}:  "Youth Day",
	{8, 9}:   "National Women's Day",
	{9, 24}:  "Heritage Day",
	{12, 16}: "Day of Reconciliation",
	{12, 25}: "Christmas Day",
	{12, 26}: "Day of Goodwill",
}

// zaHoliday reports whether d is a South African public holiday. A fixed-date
// holiday falling on a Sunday is observed on the following Monday as well.
func zaHoliday(d time.Time) (string, bool) {
	md := [2]int{int(d.Month()), d.Day()}
	if name, ok := fixedZAHolidays[md]; ok {
		return name, true
	}

	// Observed Monday for a holiday that fell on the Sunday before.
	if d.Weekday() == time.Monday {
		prev := d.AddDate(0, 0, -1)
		if name, ok := fixedZAHolidays[[2]int{int(prev.Month()), prev.Day()}]; ok {
			return name + " (observed)", true
		}
	}

	easter := easterSunday(d.Year())
	switch {
	case sameDay(d, easter.AddDate(0, 0, -2)):
		return "Good Friday", true
	case sameDay(d, easter.AddDate(0, 0, 1)):
		return "Family Day", true
	}
	return "", false
}

// easterSunday computes Easter Sunday for a year using the Gauss algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
