package redis

import (
	"context"
	"sync"
	"time"

	"trivia-match-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// MatchStore is a Redis-aware implementation of MatchRepository.
// Notes:
//   - It still keeps a local in-memory map of matches to reuse the
//     in-process dispatch and broadcast logic: a match's action stream must
//     be serialized through one authoritative state machine.
//   - Redis is used to mark match liveness (and could be extended to share
//     snapshots or route cross-instance pub/sub).
type MatchStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	matches map[string]*app.Match
}

func NewMatchStore(client *redis.Client, ttl time.Duration) *MatchStore {
	return &MatchStore{
		client:  client,
		ttl:     ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(matchID), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(matchID)).Err()
	}
}

func (s *MatchStore) key(matchID string) string {
	return "match:live:" + matchID
}
