package app

import (
	"math/rand"
	"sort"

	"trivia-match-service/internal/domain"
)

// tutorialQuestionID is the fixed onboarding question. It gets a high
// weight so it sorts to the back of the pool once players are past it.
const tutorialQuestionID = 1

const tutorialWeight = 10

// selectQuestions picks and orders the questions for one match, biased
// toward questions the current players have seen least.
//
// Each catalog question is weighted by the maximum seen-count across all
// players' persisted records (0 when never seen or no record). The catalog
// is sorted ascending by that weight with ties keeping catalog order, the
// best quarter is retained (never fewer than questionCount+1), shuffled
// uniformly, and truncated to exactly questionCount+1. The extra question
// covers the reserved trailing slot and is never played.
func selectQuestions(catalog []domain.Question, persisted map[string]domain.SeenRecord, questionCount int, rnd *rand.Rand) []domain.Question {
	pool := filterPool(catalog, persisted, questionCount)

	rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if len(pool) > questionCount+1 {
		pool = pool[:questionCount+1]
	}
	return pool
}

// filterPool is the deterministic half of selection: weight, sort, keep
// the least-seen quarter. Identical inputs always yield the identical
// pool; only the shuffle afterwards varies.
func filterPool(catalog []domain.Question, persisted map[string]domain.SeenRecord, questionCount int) []domain.Question {
	weights := make(map[int]int, len(catalog))
	for _, q := range catalog {
		weights[q.ID] = 0
	}
	for _, record := range persisted {
		for id, seen := range record.QuestionsSeen {
			if _, ok := weights[id]; ok && seen > weights[id] {
				weights[id] = seen
			}
		}
	}
	weights[tutorialQuestionID] = tutorialWeight

	pool := append([]domain.Question(nil), catalog...)
	sort.SliceStable(pool, func(i, j int) bool {
		return weights[pool[i].ID] < weights[pool[j].ID]
	})

	keep := questionCount + 1
	if quarter := len(pool) / 4; quarter > keep {
		keep = quarter
	}
	if keep > len(pool) {
		keep = len(pool)
	}
	return pool[:keep]
}
