package query

import "time"

// YearRange is the inclusive archive filter for a calendar year in loc.
func YearRange(year int, loc *time.Location) Archive {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return span(from, from.AddDate(1, 0, 0))
}

// MonthRange is the inclusive archive filter for a month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) Archive {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return span(from, from.AddDate(0, 1, 0))
}

// DayRange is the inclusive archive filter for a day in loc.
func DayRange(year int, month time.Month, day int, loc *time.Location) Archive {
	from := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return span(from, from.AddDate(0, 0, 1))
}

// span covers [from, next) at second resolution.
func span(from, next time.Time) Archive {
	return Archive{From: from, To: next.Add(-time.Second)}
}
