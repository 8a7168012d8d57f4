package redis

import (
	"context"
	"strconv"

	"trivia-match-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// HistoryStore keeps each player's cross-match seen counters in a Redis
// hash: HSET player:{playerID}:seen {questionID} {count}. Counters have no
// TTL, they are the durable record the question selector biases on.
type HistoryStore struct {
	client *redis.Client
}

func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

// Load reads the full seen map. Unknown players get an empty record.
func (s *HistoryStore) Load(ctx context.Context, playerID string) (domain.SeenRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.key(playerID)).Result()
	if err != nil {
		return domain.SeenRecord{}, err
	}

	record := domain.SeenRecord{QuestionsSeen: make(map[int]int, len(raw))}
	for field, value := range raw {
		questionID, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		count, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		record.QuestionsSeen[questionID] = count
	}
	return record, nil
}

// Increment bumps the seen counter for one shown question.
func (s *HistoryStore) Increment(ctx context.Context, playerID string, questionID int) error {
	return s.client.HIncrBy(ctx, s.key(playerID), strconv.Itoa(questionID), 1).Err()
}

func (s *HistoryStore) key(playerID string) string {
	return "player:" + playerID + ":seen"
}
