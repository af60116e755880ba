// Package logic contains the pure aggregation engine for the fridge monitor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or clocks).
// Time is always injected as a Timestamp parameter.
package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a count of seconds since the device epoch.
type Timestamp uint32

// Grid periods in seconds. LongPeriod must stay a multiple of ShortPeriod.
const (
	ShortPeriod = 900
	LongPeriod  = 28800
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// ErrOutOfOrderTimestamp is returned when an event or reset is older than
// the last timestamp the tracker accepted. State is left unchanged.
var ErrOutOfOrderTimestamp = errors.New("out of order timestamp")

// ErrInvalidDuration is returned by ParseDuration for malformed input.
var ErrInvalidDuration = errors.New("invalid ISO-8601 duration")

// FloorToShort rounds ts down to the short grid.
func (ts Timestamp) FloorToShort() Timestamp {
	return ts / ShortPeriod * ShortPeriod
}

// FloorToLong rounds ts down to the long grid.
func (ts Timestamp) FloorToLong() Timestamp {
	return ts / LongPeriod * LongPeriod
}

// Since returns ts - earlier, or 0 if earlier is after ts.
func (ts Timestamp) Since(earlier Timestamp) uint32 {
	if ts < earlier {
		return 0
	}
	return uint32(ts - earlier)
}

// DHMS splits the timestamp into days, hours, minutes and seconds.
func (ts Timestamp) DHMS() (days, hours, minutes, seconds uint32) {
	s := uint32(ts)
	days = s / secondsPerDay
	s -= days * secondsPerDay
	hours = s / secondsPerHour
	s -= hours * secondsPerHour
	minutes = s / secondsPerMinute
	seconds = s - minutes*secondsPerMinute
	return days, hours, minutes, seconds
}

// ISO8601 formats the timestamp as a duration, see FormatDuration.
func (ts Timestamp) ISO8601() string {
	return FormatDuration(uint32(ts))
}

// FormatDuration renders seconds as P{d}DT{h}H{m}M{s}S.
// A zero time-of-day part is written as T0S, so zero is "P0DT0S".
func FormatDuration(seconds uint32) string {
	d, h, m, s := Timestamp(seconds).DHMS()
	if h == 0 && m == 0 && s == 0 {
		return fmt.Sprintf("P%dDT0S", d)
	}
	return fmt.Sprintf("P%dDT%dH%dM%dS", d, h, m, s)
}

// Duration is a parsed P<d>DT<h>H<m>M<s>S value.
type Duration struct {
	Days, Hours, Minutes, Seconds uint32
}

// TotalSeconds folds the fields into a single second count.
func (d Duration) TotalSeconds() uint64 {
	return uint64(d.Days)*secondsPerDay +
		uint64(d.Hours)*secondsPerHour +
		uint64(d.Minutes)*secondsPerMinute +
		uint64(d.Seconds)
}

// ParseDuration parses the exact structure written by FormatDuration.
func ParseDuration(input string) (Duration, error) {
	if input == "P0DT0S" {
		return Duration{}, nil
	}

	rest, ok := strings.CutPrefix(input, "P")
	if !ok {
		return Duration{}, fmt.Errorf("%w: %q: missing P", ErrInvalidDuration, input)
	}
	daysStr, rest, ok := strings.Cut(rest, "DT")
	if !ok {
		return Duration{}, fmt.Errorf("%w: %q: missing DT", ErrInvalidDuration, input)
	}
	days, err := parseField(daysStr)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q: days: %v", ErrInvalidDuration, input, err)
	}
	if rest == "0S" {
		return Duration{Days: days}, nil
	}

	var fields [3]uint32
	for i, sep := range []string{"H", "M", "S"} {
		var part string
		part, rest, ok = strings.Cut(rest, sep)
		if !ok {
			return Duration{}, fmt.Errorf("%w: %q: missing %s", ErrInvalidDuration, input, sep)
		}
		fields[i], err = parseField(part)
		if err != nil {
			return Duration{}, fmt.Errorf("%w: %q: %s: %v", ErrInvalidDuration, input, sep, err)
		}
	}
	if rest != "" {
		return Duration{}, fmt.Errorf("%w: %q: trailing %q", ErrInvalidDuration, input, rest)
	}

	return Duration{Days: days, Hours: fields[0], Minutes: fields[1], Seconds: fields[2]}, nil
}

// parseField accepts only unsigned decimal digits.
func parseField(s string) (uint32, error) {
	if s == "" {
		return 0, errors.New("empty field")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric %q", s)
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
