package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Memory is an in-process Repository.
type Memory struct {
	mu      sync.RWMutex
	records []logic.AggregationRecord // sorted by Start
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, rec logic.AggregationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := slices.BinarySearchFunc(m.records, rec.Start, func(r logic.AggregationRecord, ts logic.Timestamp) int {
		return cmp.Compare(r.Start, ts)
	})
	if found {
		m.records[i] = rec
		return nil
	}
	m.records = slices.Insert(m.records, i, rec)
	return nil
}

func (m *Memory) List(_ context.Context, from, to logic.Timestamp) ([]logic.AggregationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []logic.AggregationRecord
	for _, r := range m.records {
		if r.Start >= from && r.Start < to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Daily(ctx context.Context, day time.Time) (logic.AggregationRecord, error) {
	return daily(ctx, m, day)
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
