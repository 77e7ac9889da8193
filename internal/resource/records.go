package resource

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrRecordNotFound = errors.New("resource: record not found")

// DataEventRecord is a single event entry owned by the subject that
// created it.
type DataEventRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	SourceIP    string    `json:"sourceIp,omitempty"`

	// Owner is the subject claim of the creating user.
	Owner string `json:"-"`
}

// RecordStore is an in-memory store for data event records, safe for
// concurrent use.
type RecordStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]DataEventRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		nextID: 1,
		items:  make(map[int64]DataEventRecord),
	}
}

// List returns all records ordered by ID.
func (s *RecordStore) List() []DataEventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DataEventRecord, 0, len(s.items))
	for _, rec := range s.items {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the record with the given ID.
func (s *RecordStore) Get(id int64) (DataEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id]
	if !ok {
		return DataEventRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

// Create stores a new record and returns it with its assigned ID.
func (s *RecordStore) Create(rec DataEventRecord) DataEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.items[rec.ID] = rec
	return rec
}

// Update replaces the named fields of an existing record.
func (s *RecordStore) Update(id int64, rec DataEventRecord) (DataEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return DataEventRecord{}, ErrRecordNotFound
	}

	existing.Name = rec.Name
	existing.Description = rec.Description
	if !rec.Timestamp.IsZero() {
		existing.Timestamp = rec.Timestamp
	}
	s.items[id] = existing
	return existing, nil
}

// Delete removes the record with the given ID.
func (s *RecordStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.items, id)
	return nil
}
