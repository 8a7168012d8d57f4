package memory

import (
	"sync"

	"trivia-match-service/internal/app"
)

// MatchStore is an in-memory implementation of app.MatchRepository.
type MatchStore struct {
	mu      sync.RWMutex
	matches map[string]*app.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[string]*app.Match),
	}
}

func (s *MatchStore) GetOrCreate(matchID string) *app.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if match, ok := s.matches[matchID]; ok {
		return match
	}
	match := app.NewMatch(matchID)
	s.matches[matchID] = match
	return match
}

func (s *MatchStore) Get(matchID string) (*app.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[matchID]
	return match, ok
}

func (s *MatchStore) DeleteIfEmpty(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[matchID]
	if !ok {
		return
	}
	if match.IsEmpty() {
		delete(s.matches, matchID)
	}
}
