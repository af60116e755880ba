// Package clock converts between wall-clock time and device timestamps.
package clock

import (
	"errors"
	"math"
	"time"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Epoch is the instant device timestamp zero refers to.
var Epoch = time.Date(2000, time.March, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrBeforeEpoch is returned for times earlier than Epoch.
	ErrBeforeEpoch = errors.New("clock: time before device epoch")
	// ErrOutOfRange is returned for times past the last representable second.
	ErrOutOfRange = errors.New("clock: time past device timestamp range")
)

// ToTimestamp converts t to a device timestamp, truncating to the second.
// Out-of-range times clamp to the nearest representable value and return an
// error.
func ToTimestamp(t time.Time) (logic.Timestamp, error) {
	secs := int64(t.Sub(Epoch) / time.Second)
	if t.Before(Epoch) {
		return 0, ErrBeforeEpoch
	}
	if secs > math.MaxUint32 {
		return logic.Timestamp(math.MaxUint32), ErrOutOfRange
	}
	return logic.Timestamp(secs), nil
}

// ToTime converts a device timestamp to UTC wall-clock time.
func ToTime(ts logic.Timestamp) time.Time {
	return Epoch.Add(time.Duration(ts) * time.Second)
}

// Source produces device timestamps from an injectable wall clock.
type Source struct {
	now func() time.Time
}

// NewSource returns a Source reading now. A nil now uses time.Now.
func NewSource(now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{now: now}
}

// Now returns the current device timestamp, clamped into range.
func (s *Source) Now() logic.Timestamp {
	ts, _ := ToTimestamp(s.now())
	return ts
}

// Wall returns the current wall-clock time.
func (s *Source) Wall() time.Time {
	return s.now()
}
