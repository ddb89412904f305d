package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-etl/internal/weather"
)

// Memory is a concurrency-safe in-memory observation store with the same
// insert-or-update semantics as the Postgres store: one row per
// (site_id, source, observation_time), later writes overwrite the mutable
// fields. Used by tests and local development.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]weather.ObservationRecord
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]weather.ObservationRecord)}
}

// UpsertOne inserts or overwrites the row sharing the record's key.
func (m *Memory) UpsertOne(_ context.Context, rec weather.ObservationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.Key()] = rec
	return nil
}

// UpsertBatch upserts every record; in memory nothing can partially fail, so
// succeeded always equals total.
func (m *Memory) UpsertBatch(_ context.Context, recs []weather.ObservationRecord) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.rows[rec.Key()] = rec
	}
	return len(recs), len(recs)
}

// Len returns the number of distinct uniqueness keys stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Get returns the stored row for a uniqueness key.
func (m *Memory) Get(key string) (weather.ObservationRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rows[key]
	return rec, ok
}

// GetRange returns a site's observations between from and to (inclusive),
// ordered by observation time.
func (m *Memory) GetRange(_ context.Context, siteID int, from, to time.Time) ([]weather.ObservationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []weather.ObservationRecord
	for _, rec := range m.rows {
		if rec.SiteID != siteID {
			continue
		}
		if rec.ObservationTime.Before(from) || rec.ObservationTime.After(to) {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ObservationTime.Before(recs[j].ObservationTime)
	})
	return recs, nil
}
