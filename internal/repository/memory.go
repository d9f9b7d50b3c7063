package repository

import (
	"sort"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/models"
)

// MemoryRecordStore is an in-memory BreakRecordRepository used by unit
// tests and local experiments. It mirrors the durable store's contract:
// append-only, chronological range reads.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records []models.BreakRecord
	nextID  uint

	failWith error
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{nextID: 1}
}

// FailWith makes every subsequent Append return err. Pass nil to heal.
func (s *MemoryRecordStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryRecordStore) Append(record *models.BreakRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	rec := *record
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	record.ID = rec.ID
	return nil
}

func (s *MemoryRecordStore) QueryRange(start, end time.Time) ([]models.BreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BreakRecord
	for _, rec := range s.records {
		if !rec.Timestamp.Before(start) && rec.Timestamp.Before(end) {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// All returns every stored record in append order.
func (s *MemoryRecordStore) All() []models.BreakRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.BreakRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryRecordStore) Close() error {
	return nil
}
