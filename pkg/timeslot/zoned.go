package timeslot

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Zone is a loaded IANA location. Every LocalTime carries one, so arithmetic across two
// different zones cannot happen by accident.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA timezone name.
func LoadZone(name string) (Zone, error) {
	if name == "" {
		return Zone{}, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// ZoneOf wraps an existing location.
func ZoneOf(loc *time.Location) Zone {
	if loc == nil {
		loc = time.UTC
	}
	return Zone{loc: loc}
}

// Name returns the IANA name.
func (z Zone) Name() string {
	return z.Location().String()
}

// Location returns the wrapped location, UTC for the zero Zone.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Same reports whether both zones share a name.
func (z Zone) Same(other Zone) bool {
	return z.Name() == other.Name()
}

// At builds a LocalTime on date at clock within the zone.
func (z Zone) At(date string, clock Clock) (LocalTime, error) {
	if _, err := ParseDate(date); err != nil {
		return LocalTime{}, err
	}
	return LocalTime{Date: date, Clock: clock, Zone: z}, nil
}

// LocalTime is a calendar date plus wall-clock time in a fixed zone.
type LocalTime struct {
	Date  string
	Clock Clock
	Zone  Zone
}

// Time resolves the local time to an instant. Wall times skipped by a DST gap normalise forward.
func (t LocalTime) Time() time.Time {
	day, err := ParseDate(t.Date)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, int(t.Clock), 0, 0, t.Zone.Location())
}

// In converts the local time into another zone.
func (t LocalTime) In(target Zone) LocalTime {
	instant := t.Time().In(target.Location())
	return LocalTime{
		Date:  instant.Format(DateLayout),
		Clock: Clock(instant.Hour()*60 + instant.Minute()),
		Zone:  target,
	}
}

// ParseDate parses a "YYYY-MM-DD" calendar date as midnight UTC. Calendar iteration runs on
// UTC dates so a DST transition never skips or repeats a day.
func ParseDate(raw string) (time.Time, error) {
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return day, nil
}

// DatesBetween returns every calendar date from start to end inclusive, ascending.
func DatesBetween(start, end time.Time) []string {
	var dates []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format(DateLayout))
	}
	return dates
}

// WeekdayName returns the lower-case weekday name used as a working-hours key.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[day]
}

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Weekdays lists the working-hours keys in calendar order.
func Weekdays() []string {
	out := make([]string, len(weekdayNames))
	copy(out, weekdayNames[:])
	return out
}
