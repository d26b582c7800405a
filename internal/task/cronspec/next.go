package cronspec

import "time"

// Next returns the first local-time second strictly after t that the schedule
// hits, or the zero time if there is none before the end of the year range.
//
// The search walks from the coarsest field down, resetting the finer fields
// whenever a coarser one advances.
func (s *Schedule) Next(t time.Time) time.Time {
	if !s.Valid() {
		return time.Time{}
	}
	_, maxYear := Year.Bounds()
	loc := time.Local

	t = t.In(loc)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).Add(time.Second)

WRAP:
	if t.Year() > maxYear {
		return time.Time{}
	}

	for !s.fields[Year].Hit(t.Year()) {
		t = time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
		if t.Year() > maxYear {
			return time.Time{}
		}
	}

	for !s.fields[Month].Hit(int(t.Month())) {
		t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
		if t.Month() == time.January {
			goto WRAP
		}
	}

	for !s.fields[DayOfMonth].Hit(t.Day()) || !s.fields[DayOfWeek].Hit(int(t.Weekday())) {
		t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
		if t.Day() == 1 {
			goto WRAP
		}
	}

	for !s.fields[Hour].Hit(t.Hour()) {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
		if t.Hour() == 0 {
			goto WRAP
		}
	}

	for !s.fields[Minute].Hit(t.Minute()) {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, loc)
		if t.Minute() == 0 {
			goto WRAP
		}
	}

	for !s.fields[Second].Hit(t.Second()) {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()+1, 0, loc)
		if t.Second() == 0 {
			goto WRAP
		}
	}

	return t
}
