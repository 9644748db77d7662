// Package timeslot holds the same-day interval arithmetic used by the availability engine.
// Times are minutes since local midnight; they carry no date, so every comparison is same-day.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds a Clock value. "24:00" is accepted as the end of a day.
const MinutesPerDay = 24 * 60

// Clock is a wall-clock time expressed in minutes since midnight.
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return Clock(hours*60 + minutes), nil
}

// IsValid reports whether raw parses as a Clock.
func IsValid(raw string) bool {
	_, err := ParseClock(raw)
	return err == nil
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return MinutesToTime(int(c))
}

// Add shifts the clock by n minutes.
func (c Clock) Add(n int) Clock {
	return c + Clock(n)
}

// TimeToMinutes converts "HH:MM" into minutes since midnight. Malformed input yields 0.
func TimeToMinutes(raw string) int {
	c, err := ParseClock(raw)
	if err != nil {
		return 0
	}
	return int(c)
}

// MinutesToTime formats minutes since midnight as "HH:MM".
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes returns raw shifted by n minutes.
func AddMinutes(raw string, n int) string {
	return MinutesToTime(TimeToMinutes(raw) + n)
}

// MinutesBetween returns b - a in minutes.
func MinutesBetween(a, b string) int {
	return TimeToMinutes(b) - TimeToMinutes(a)
}

// Overlaps reports whether [startA, startA+durationA) and [startB, startB+durationB) intersect.
// Touching intervals do not overlap.
func Overlaps(startA, durationA, startB, durationB int) bool {
	endA := startA + durationA
	endB := startB + durationB
	return startA < endB && endA > startB
}

// Interval is a half-open [Start, End) range on a single day.
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval builds an interval from a start and a duration in minutes.
func NewInterval(start Clock, duration int) Interval {
	return Interval{Start: start, End: start.Add(duration)}
}

// Duration returns the interval length in minutes.
func (i Interval) Duration() int {
	return int(i.End - i.Start)
}

// Overlaps applies the strict half-open rule to two intervals.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(int(i.Start), i.Duration(), int(other.Start), other.Duration())
}

// Contains reports whether other lies entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Extend returns the interval with its end pushed out by n minutes.
func (i Interval) Extend(n int) Interval {
	return Interval{Start: i.Start, End: i.End.Add(n)}
}

// ParseInterval parses an "HH:MM" start and end. The end must be after the start.
func ParseInterval(start, end string) (Interval, error) {
	from, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if to <= from {
		return Interval{}, fmt.Errorf("interval %s-%s ends before it starts", start, end)
	}
	return Interval{Start: from, End: to}, nil
}
