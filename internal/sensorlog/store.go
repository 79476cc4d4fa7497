package sensorlog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxRecords caps the log like the dashboard history query.
const DefaultMaxRecords = 10000

// Store is a capped, newest-first record log, optionally backed by a CBOR
// file. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	limit   int
	records []Record // oldest first
	ids     map[string]struct{}
	file    *fileLog
}

// NewStore returns an in-memory store holding at most limit records
// (<= 0 means DefaultMaxRecords).
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultMaxRecords
	}
	return &Store{
		limit: limit,
		ids:   make(map[string]struct{}),
	}
}

// Open returns a store persisted at path, loading what the file holds.
func Open(path string, limit int) (*Store, error) {
	s := NewStore(limit)
	f, recs, dirty, err := openFileLog(path)
	if err != nil {
		return nil, err
	}
	s.file = f
	for _, r := range recs {
		s.insertLocked(r)
	}
	// Compact a damaged tail, duplicates or records beyond the cap.
	if dirty || len(recs) > len(s.records) {
		if err := s.file.rewrite(s.records); err != nil {
			_ = f.close()
			return nil, fmt.Errorf("compact %s: %w", path, err)
		}
	}
	return s, nil
}

// Append stores rec, assigning an ID when it has none. It reports false
// (and stores nothing) when a record with the same ID is already present.
func (s *Store) Append(rec Record) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, dup := s.ids[rec.ID]; dup {
		return rec, false, nil
	}
	if s.file != nil {
		if err := s.file.append(rec); err != nil {
			return rec, false, fmt.Errorf("persist record %s: %w", rec.ID, err)
		}
	}
	s.insertLocked(rec)
	return rec, true, nil
}

func (s *Store) insertLocked(rec Record) {
	if _, dup := s.ids[rec.ID]; dup {
		return
	}
	s.records = append(s.records, rec)
	s.ids[rec.ID] = struct{}{}
	if over := len(s.records) - s.limit; over > 0 {
		for _, old := range s.records[:over] {
			delete(s.ids, old.ID)
		}
		s.records = slices.Delete(s.records, 0, over)
	}
}

// Replace swaps the whole log for recs (a history load), ordered by
// timestamp.
func (s *Store) Replace(recs []Record) error {
	sorted := slices.Clone(recs)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
	clear(s.ids)
	for _, r := range sorted {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.insertLocked(r)
	}
	if s.file != nil {
		if err := s.file.rewrite(s.records); err != nil {
			return fmt.Errorf("rewrite log: %w", err)
		}
	}
	return nil
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear drops every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	clear(s.ids)
	if s.file != nil {
		if err := s.file.rewrite(nil); err != nil {
			return fmt.Errorf("clear log: %w", err)
		}
	}
	return nil
}

// Close releases the backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.close()
	s.file = nil
	return err
}
