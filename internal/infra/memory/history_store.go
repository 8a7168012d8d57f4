package memory

import (
	"context"
	"sync"

	"trivia-match-service/internal/domain"
)

// HistoryStore is an in-memory implementation of app.HistoryStore. Seen
// counts survive matches but not the process; use the Redis store for
// durability.
type HistoryStore struct {
	mu   sync.RWMutex
	seen map[string]map[int]int
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		seen: make(map[string]map[int]int),
	}
}

func (s *HistoryStore) Load(_ context.Context, playerID string) (domain.SeenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record := domain.SeenRecord{QuestionsSeen: make(map[int]int)}
	for id, count := range s.seen[playerID] {
		record.QuestionsSeen[id] = count
	}
	return record, nil
}

func (s *HistoryStore) Increment(_ context.Context, playerID string, questionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[playerID] == nil {
		s.seen[playerID] = make(map[int]int)
	}
	s.seen[playerID][questionID]++
	return nil
}
