package visit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps visit records in process memory. Used by tests and
// single-node dev runs; production uses the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, rec *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.AppointmentID == rec.AppointmentID && existing.Open() {
			return existing.Clone(), ErrOpenVisitExists
		}
	}

	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.ID]
	if !ok {
		return nil, ErrNotFound
	}
	stored := rec.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	s.records[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) GetOpenByAppointment(_ context.Context, appointmentID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.AppointmentID == appointmentID && rec.Open() {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListByCaregiver(_ context.Context, caregiverID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if rec.CaregiverID == caregiverID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
