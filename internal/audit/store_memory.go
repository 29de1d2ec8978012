package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps the audit trail in process memory. Production deploys
// rely on the Kafka topic as the durable trail; this store backs the local
// read path and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByVisit(_ context.Context, visitID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.VisitID == visitID {
			out = append(out, e)
		}
	}
	return out, nil
}
