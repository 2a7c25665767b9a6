package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ClockTime is a wall-clock time of day expressed in minutes after midnight.
type ClockTime int

const minutesPerDay = 24 * 60

var clockPattern = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseClockTime parses an "HH:MM" string.
func ParseClockTime(value string) (ClockTime, error) {
	value = strings.TrimSpace(value)
	if !clockPattern.MatchString(value) {
		return 0, fmt.Errorf("%w: time %q must be in HH:MM format", ErrInvalidInput, value)
	}
	hours, _ := strconv.Atoi(value[:2])
	minutes, _ := strconv.Atoi(value[3:])
	return ClockTime(hours*60 + minutes), nil
}

// MustClockTime parses value and panics when it is malformed. Intended for fixtures.
func MustClockTime(value string) ClockTime {
	ct, err := ParseClockTime(value)
	if err != nil {
		panic(err)
	}
	return ct
}

// ClockTimeOf returns the minute-of-day of t in its own location.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// String renders the value as HH:MM.
func (c ClockTime) String() string {
	if c < 0 || c >= minutesPerDay {
		return fmt.Sprintf("invalid(%d)", int(c))
	}
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether the value lies within a single day.
func (c ClockTime) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

// On anchors the clock time to the calendar day of date, in date's location.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// MidnightIn truncates t to the start of its calendar day in loc.
func MidnightIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseWeekday accepts English weekday names in any letter case.
func ParseWeekday(name string) (time.Weekday, error) {
	normalized := cases.Title(language.English).String(strings.TrimSpace(name))
	for day := time.Sunday; day <= time.Saturday; day++ {
		if day.String() == normalized {
			return day, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, name)
}
