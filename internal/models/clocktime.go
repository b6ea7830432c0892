package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned when a lab time string is not in the
// expected 24-hour "HH:MM" form.
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

// ClockTime is a wall-clock time of day with minute precision and no date
// or timezone attached. It serializes as a 24-hour "HH:MM" string.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime creates a ClockTime, validating the hour and minute ranges.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("minute %d out of range [0,59]", minute)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// ParseClockTime parses a 24-hour "HH:MM" string such as "14:00".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("parse %q: %w", s, ErrInvalidTimeFormat)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse %q: %w", s, ErrInvalidTimeFormat)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse %q: %w", s, ErrInvalidTimeFormat)
	}
	ct, err := NewClockTime(hour, minute)
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse %q: %w", s, ErrInvalidTimeFormat)
	}
	return ct, nil
}

// String returns the zero-padded 24-hour form, e.g. "09:05".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Format12Hour returns the 12-hour clock form with AM/PM, e.g. "02:00 PM".
func (c ClockTime) Format12Hour() string {
	ref := time.Date(0, time.January, 1, c.Hour, c.Minute, 0, 0, time.UTC)
	return ref.Format("03:04 PM")
}

// On returns the full timestamp for this time of day on the date of t,
// in t's location, with seconds and sub-seconds zeroed.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// MarshalJSON implements json.Marshaler.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("lab time must be a string: %w", ErrInvalidTimeFormat)
	}
	ct, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}
