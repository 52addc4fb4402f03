// Package timewindow converts the wizard's local date and time-of-day
// inputs into the UTC instants the backend expects.
package timewindow

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fleet-report-builder/internal/errs"
)

const (
	// Step is the slider granularity in minutes.
	Step = 15
	// MaxMinutes is 23:59, the last representable time of day.
	MaxMinutes = 24*60 - 1

	dateLayout = "2006-01-02"
	utcLayout  = "2006-01-02T15:04:05Z"
)

// Window is the raw, local-time input of a report.
type Window struct {
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	StartMinutes int    `json:"startMinutes"`
	EndMinutes   int    `json:"endMinutes"`
	Timezone     string `json:"timezone"`
}

// Range is a normalized window in UTC.
type Range struct {
	StartUTC string `json:"startUtc"`
	EndUTC   string `json:"endUtc"`
}

// QuantizeTimeOfDay rounds raw to the nearest 15-minute step and clamps it
// to [0, MaxMinutes]. A value rounding to 24:00 becomes 23:59.
func QuantizeTimeOfDay(raw int) int {
	rounded := int(math.Floor(float64(raw)/Step+0.5)) * Step
	if rounded < 0 {
		return 0
	}
	if rounded > MaxMinutes {
		return MaxMinutes
	}
	return rounded
}

// LoadLocation resolves a timezone name. Blank and unknown names fail with a
// ConfigurationError.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &errs.ConfigurationError{Reason: "timezone is not set"}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &errs.ConfigurationError{Reason: fmt.Sprintf("unknown timezone %q", name), Err: err}
	}
	return loc, nil
}

// ToUTCInstant interprets dateISO plus minutes as wall-clock time in tz and
// returns the matching UTC instant truncated to seconds.
func ToUTCInstant(dateISO string, minutes int, tz string) (string, error) {
	t, err := toTime(dateISO, minutes, tz, "date", "timeOfDay")
	if err != nil {
		return "", err
	}
	return t.UTC().Format(utcLayout), nil
}

func toTime(dateISO string, minutes int, tz, dateField, timeField string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.Parse(dateLayout, strings.TrimSpace(dateISO))
	if err != nil {
		return time.Time{}, errs.Validation(dateField)
	}
	if minutes < 0 || minutes > MaxMinutes {
		return time.Time{}, errs.Validation(timeField)
	}
	y, m, d := day.Date()
	// time.Date normalizes wall clocks that fall into a DST gap forward.
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc), nil
}

// Normalize converts both endpoints of w to UTC. The start must not be after
// the end.
func Normalize(w Window) (Range, error) {
	start, err := toTime(w.StartDate, w.StartMinutes, w.Timezone, "startDate", "startTime")
	if err != nil {
		return Range{}, err
	}
	end, err := toTime(w.EndDate, w.EndMinutes, w.Timezone, "endDate", "endTime")
	if err != nil {
		return Range{}, err
	}
	if start.After(end) {
		return Range{}, errs.Validation("endDate")
	}
	return Range{
		StartUTC: start.UTC().Format(utcLayout),
		EndUTC:   end.UTC().Format(utcLayout),
	}, nil
}

// FormatMinutes renders minutes since midnight as HH:MM.
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses HH:MM into minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return h*60 + m, nil
}
