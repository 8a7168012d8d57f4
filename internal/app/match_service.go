package app

import (
	"context"
	"log"
	"math/rand"
	"time"

	"trivia-match-service/internal/domain"
)

// MatchRepository abstracts how live matches are stored (in-memory, Redis, etc).
type MatchRepository interface {
	GetOrCreate(matchID string) *Match
	Get(matchID string) (*Match, bool)
	DeleteIfEmpty(matchID string)
}

// CatalogRepository loads question catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, lang domain.Language) (domain.Catalog, error)
}

// HistoryStore is the durable per-player record of questions seen across
// matches. Load returns an empty record for unknown players.
type HistoryStore interface {
	Load(ctx context.Context, playerID string) (domain.SeenRecord, error)
	Increment(ctx context.Context, playerID string, questionID int) error
}

// MatchService contains the trivia match use cases. It owns dispatch into
// the match state machines and write-through of seen-count history.
type MatchService struct {
	matches  MatchRepository
	catalogs CatalogRepository
	history  HistoryStore
}

func NewMatchService(matches MatchRepository, catalogs CatalogRepository, history HistoryStore) *MatchService {
	return &MatchService{matches: matches, catalogs: catalogs, history: history}
}

// NewMatch is exported for infrastructure layers that need to seed matches.
func NewMatch(id string) *Match {
	return newMatch(id)
}

// NewMatchWithClock is test-only for deterministic deadlines and shuffles.
func NewMatchWithClock(id string, now func() time.Time, rnd *rand.Rand) *Match {
	return newMatchWithClock(id, now, rnd)
}

// Join registers a player, seeding their cross-match history into the match.
func (s *MatchService) Join(ctx context.Context, matchID, playerID string) (domain.Snapshot, error) {
	seen, err := s.history.Load(ctx, playerID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	match := s.matches.GetOrCreate(matchID)
	return match.Join(playerID, seen), nil
}

// Leave removes a player. A departure can advance the match (it re-runs
// the everyone-answered check), so pending history is flushed afterwards.
func (s *MatchService) Leave(ctx context.Context, matchID, playerID string) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return
	}
	match.Leave(playerID)
	s.flushSeen(ctx, match)
	if match.IsEmpty() {
		s.matches.DeleteIfEmpty(matchID)
	}
}

// Start opens question 1, selecting the match's questions from the
// catalog for the match's language.
func (s *MatchService) Start(ctx context.Context, matchID string) (domain.Snapshot, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, domain.ErrMatchNotFound
	}
	catalog, err := s.catalogs.GetCatalog(ctx, match.Lang())
	if err != nil {
		return domain.Snapshot{}, err
	}
	snapshot, err := match.Start(catalog.Questions)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.flushSeen(ctx, match)
	return snapshot, nil
}

// Answer records a player's choice for the active question.
func (s *MatchService) Answer(ctx context.Context, matchID, playerID string, index int) (domain.Snapshot, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, domain.ErrMatchNotFound
	}
	snapshot, err := match.Answer(playerID, index)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.flushSeen(ctx, match)
	return snapshot, nil
}

// TimeDone applies a client's deadline assertion for question index. When
// it finalizes a completed match the emitted result is returned non-nil.
func (s *MatchService) TimeDone(ctx context.Context, matchID string, index int) (domain.Snapshot, domain.MatchResult, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, nil, domain.ErrMatchNotFound
	}
	snapshot, result, err := match.TimeDone(index)
	if err != nil {
		return domain.Snapshot{}, nil, err
	}
	s.flushSeen(ctx, match)
	return snapshot, result, nil
}

// SetQuestionCount configures the requested match length (lobby only).
func (s *MatchService) SetQuestionCount(_ context.Context, matchID string, count int) (domain.Snapshot, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, domain.ErrMatchNotFound
	}
	return match.SetQuestionCount(count)
}

// SetTimer configures timer enforcement (lobby only).
func (s *MatchService) SetTimer(_ context.Context, matchID string, enabled bool) (domain.Snapshot, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, domain.ErrMatchNotFound
	}
	return match.SetTimer(enabled)
}

// SetLanguage selects the catalog language (legal at any time).
func (s *MatchService) SetLanguage(_ context.Context, matchID string, lang domain.Language) (domain.Snapshot, error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return domain.Snapshot{}, domain.ErrMatchNotFound
	}
	return match.SetLanguage(lang)
}

// Subscribe returns a channel that receives state snapshots for a match.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *MatchService) Subscribe(_ context.Context, matchID string) (<-chan domain.Snapshot, func(), error) {
	match, ok := s.matches.Get(matchID)
	if !ok {
		return nil, nil, domain.ErrMatchNotFound
	}
	ch, cancel := match.Subscribe()
	return ch, cancel, nil
}

// flushSeen writes accumulated seen-count increments to the history
// store. Best effort: a failed write must never fail the action that
// advanced the match, the counters only bias future selection.
func (s *MatchService) flushSeen(ctx context.Context, match *Match) {
	for _, inc := range match.DrainSeen() {
		if err := s.history.Increment(ctx, inc.PlayerID, inc.QuestionID); err != nil {
			log.Printf("persist seen count for %s/%d: %v", inc.PlayerID, inc.QuestionID, err)
		}
	}
}
