// Package store persists finalized long-period records.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// ErrNoRecords is returned by Daily when the day holds no records.
var ErrNoRecords = errors.New("store: no records")

// Repository stores aggregation records keyed by their start timestamp.
// Saving a record with an existing start replaces it.
type Repository interface {
	Save(ctx context.Context, rec logic.AggregationRecord) error
	// List returns records with from <= Start < to, ordered by Start.
	List(ctx context.Context, from, to logic.Timestamp) ([]logic.AggregationRecord, error)
	// Daily merges the records starting within the UTC day containing day.
	Daily(ctx context.Context, day time.Time) (logic.AggregationRecord, error)
}

// Sink adapts repo to a dispatcher record sink.
func Sink(repo Repository) dispatch.RecordSink {
	return dispatch.RecordSinkFunc(repo.Save)
}

// DayRange returns the device timestamps bounding the UTC day containing day.
func DayRange(day time.Time) (from, to logic.Timestamp, err error) {
	start := day.UTC().Truncate(24 * time.Hour)
	from, err = clock.ToTimestamp(start)
	if err != nil {
		return 0, 0, fmt.Errorf("store: day %s: %w", start.Format(time.DateOnly), err)
	}
	to, err = clock.ToTimestamp(start.Add(24 * time.Hour))
	if err != nil {
		return 0, 0, fmt.Errorf("store: day %s: %w", start.Format(time.DateOnly), err)
	}
	return from, to, nil
}

type lister interface {
	List(ctx context.Context, from, to logic.Timestamp) ([]logic.AggregationRecord, error)
}

func daily(ctx context.Context, l lister, day time.Time) (logic.AggregationRecord, error) {
	from, to, err := DayRange(day)
	if err != nil {
		return logic.AggregationRecord{}, err
	}
	recs, err := l.List(ctx, from, to)
	if err != nil {
		return logic.AggregationRecord{}, err
	}
	if len(recs) == 0 {
		return logic.AggregationRecord{}, ErrNoRecords
	}
	return logic.MergeAll(recs), nil
}
