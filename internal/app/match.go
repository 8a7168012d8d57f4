package app

import (
	"math/rand"
	"sync"
	"time"

	"trivia-match-service/internal/domain"
)

// QuestionTime is how long a question stays open.
const QuestionTime = 15 * time.Second

// AnswerTime is the reveal pause after a question closes, before the next
// question is shown.
const AnswerTime = 3 * time.Second

// Action names recorded on snapshots so replicas know what produced an update.
const (
	ActionJoin      = "playerJoined"
	ActionLeave     = "playerLeft"
	ActionStart     = "start"
	ActionAnswer    = "answer"
	ActionTimeDone  = "timeDone"
	ActionQuestions = "questions"
	ActionTimer     = "timer"
	ActionLanguage  = "language"
)

// SeenIncrement records that a player was shown a question, pending a
// write to the durable history store.
type SeenIncrement struct {
	PlayerID   string
	QuestionID int
}

// Match is the authoritative state machine for one quiz. All mutation goes
// through its action methods; every replica only ever sees snapshots. Time
// never advances on its own: clients report expired deadlines via TimeDone.
type Match struct {
	id  string
	now func() time.Time
	rnd *rand.Rand

	mu             sync.RWMutex
	questions      []domain.Question
	question       domain.MatchQuestion
	questionNumber int
	playerStatus   map[string]domain.Status
	playerAnswers  map[string]int
	lastAnswers    map[string]int
	playerScores   map[string]int
	timeOut        time.Time
	lang           domain.Language
	correctIndex   int
	timerEnabled   bool
	questionCount  int
	complete       bool

	persisted   map[string]domain.SeenRecord
	pendingSeen []SeenIncrement
	subscribers map[chan domain.Snapshot]struct{}
}

func newMatch(id string) *Match {
	return newMatchWithClock(id, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// newMatchWithClock allows deterministic time and shuffles in tests.
func newMatchWithClock(id string, now func() time.Time, rnd *rand.Rand) *Match {
	return &Match{
		id:            id,
		now:           now,
		rnd:           rnd,
		lang:          domain.LangEN,
		questionCount: 5,
		playerStatus:  make(map[string]domain.Status),
		playerAnswers: make(map[string]int),
		lastAnswers:   make(map[string]int),
		playerScores:  make(map[string]int),
		persisted:     make(map[string]domain.SeenRecord),
		subscribers:   make(map[chan domain.Snapshot]struct{}),
	}
}

// Lang returns the language the match will draw its catalog from.
func (m *Match) Lang() domain.Language {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lang
}

// IsEmpty reports whether the match has no players.
func (m *Match) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.playerStatus) == 0
}

// Join registers a player. Joining mid-question leaves them THINKING with
// no answer recorded, so they block the early-advance check like anyone
// else who hasn't answered yet.
func (m *Match) Join(playerID string, seen domain.SeenRecord) domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playerScores[playerID] = 0
	if m.questionNumber > 0 {
		m.playerStatus[playerID] = domain.StatusThinking
		m.playerAnswers[playerID] = domain.NoAnswer
	} else {
		m.playerStatus[playerID] = domain.StatusWaiting
	}
	m.persisted[playerID] = seen.Clone()

	return m.broadcastLocked(ActionJoin, nil)
}

// Leave drops all of a player's entries and re-checks the everyone-answered
// condition: a departing player must never block advancement.
func (m *Match) Leave(playerID string) domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.playerAnswers, playerID)
	delete(m.playerScores, playerID)
	delete(m.playerStatus, playerID)
	delete(m.persisted, playerID)

	m.checkAllAnswersInLocked()
	return m.broadcastLocked(ActionLeave, nil)
}

// Start begins the match: selects and orders this match's questions from
// the catalog and opens question 1. Legal only in the lobby; a second
// start is rejected.
func (m *Match) Start(catalog []domain.Question) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.questionNumber != 0 {
		return domain.Snapshot{}, domain.ErrAlreadyStarted
	}
	if len(catalog) == 0 {
		return domain.Snapshot{}, domain.ErrCatalogNotFound
	}

	m.questions = selectQuestions(catalog, m.persisted, m.questionCount, m.rnd)
	m.advanceLocked()
	// the first question has no prior answers to reveal, so no AnswerTime
	m.timeOut = m.now().Add(QuestionTime)

	return m.broadcastLocked(ActionStart, nil), nil
}

// Answer records a player's choice. The first accepted answer for a
// question is marked FASTEST; serialization order decides, not wall
// clocks. If everyone has answered the match advances immediately.
func (m *Match) Answer(playerID string, index int) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.questionNumber == 0 || m.complete {
		return domain.Snapshot{}, domain.ErrNoActiveQuestion
	}
	if index < 0 || index >= len(m.question.Answers) {
		return domain.Snapshot{}, domain.ErrInvalidAnswerIndex
	}
	if _, ok := m.playerStatus[playerID]; !ok {
		return domain.Snapshot{}, domain.ErrPlayerNotFound
	}
	if m.playerAnswers[playerID] != domain.NoAnswer {
		return domain.Snapshot{}, domain.ErrAlreadyAnswered
	}

	m.playerAnswers[playerID] = index
	if m.anyFastestLocked() {
		m.playerStatus[playerID] = domain.StatusReady
	} else {
		m.playerStatus[playerID] = domain.StatusFastest
	}

	m.checkAllAnswersInLocked()
	return m.broadcastLocked(ActionAnswer, nil), nil
}

// TimeDone is a client's assertion that the deadline for question index
// has expired. Stale and duplicate reports are rejected by comparing the
// asserted index against the authoritative question number. Once the
// match is complete, any TimeDone finalizes it instead: the result is
// computed, emitted exactly once, and the match resets to the lobby.
func (m *Match) TimeDone(index int) (domain.Snapshot, domain.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.complete {
		result := m.resultLocked()
		m.resetLocked()
		return m.broadcastLocked(ActionTimeDone, result), result, nil
	}

	if index != m.questionNumber || m.questionNumber == 0 {
		return domain.Snapshot{}, nil, domain.ErrStaleTimeout
	}

	m.advanceLocked()
	return m.broadcastLocked(ActionTimeDone, nil), nil, nil
}

// SetQuestionCount configures the match length. Lobby only.
func (m *Match) SetQuestionCount(count int) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.questionNumber != 0 {
		return domain.Snapshot{}, domain.ErrAlreadyStarted
	}
	if count != 5 && count != 10 && count != 20 {
		return domain.Snapshot{}, domain.ErrInvalidQuestionCount
	}
	m.questionCount = count
	return m.broadcastLocked(ActionQuestions, nil), nil
}

// SetTimer configures whether per-question timing is enforced. Lobby only.
func (m *Match) SetTimer(enabled bool) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.questionNumber != 0 {
		return domain.Snapshot{}, domain.ErrAlreadyStarted
	}
	m.timerEnabled = enabled
	return m.broadcastLocked(ActionTimer, nil), nil
}

// SetLanguage selects the catalog language. Legal at any time: late
// joining clients self-report their locale with it. A match that already
// started keeps the questions it selected.
func (m *Match) SetLanguage(lang domain.Language) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !lang.Supported() {
		return domain.Snapshot{}, domain.ErrUnknownLanguage
	}
	m.lang = lang
	return m.broadcastLocked(ActionLanguage, nil), nil
}

// Snapshot returns the current read-only view without mutating anything.
func (m *Match) Snapshot() domain.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked("", nil)
}

// DrainSeen returns and clears the seen-count increments accumulated
// since the last drain. The caller persists them.
func (m *Match) DrainSeen() []SeenIncrement {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pendingSeen
	m.pendingSeen = nil
	return pending
}

// Subscribe returns a channel receiving a snapshot after every applied
// action, starting with the current state. The caller must invoke the
// returned cancel function to avoid leaks.
func (m *Match) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	initial := m.snapshotLocked("", nil)
	m.mu.Unlock()

	ch <- initial

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Match) anyFastestLocked() bool {
	for _, status := range m.playerStatus {
		if status == domain.StatusFastest {
			return true
		}
	}
	return false
}

// checkAllAnswersInLocked advances early when every currently known
// player has answered. Re-run after any state-shrinking event too, so a
// departure cannot leave the match stuck waiting on a ghost.
func (m *Match) checkAllAnswersInLocked() {
	if m.questionNumber == 0 || m.complete || len(m.playerStatus) == 0 {
		return
	}
	for _, status := range m.playerStatus {
		if !status.Answered() {
			return
		}
	}
	m.advanceLocked()
}

// advanceLocked closes the current question (scoring it) and opens the
// next one, or flips the match to complete when the questions run out.
// The trailing selected question is reserved bookkeeping for the final
// reveal slot and is never shown.
func (m *Match) advanceLocked() {
	if m.questionNumber > 0 && len(m.question.Answers) > 0 {
		m.correctIndex = indexOf(m.question.Answers, m.question.CorrectAnswer)
		for id, answer := range m.playerAnswers {
			if answer == m.correctIndex {
				m.playerScores[id]++
				if m.playerStatus[id] == domain.StatusFastest {
					m.playerScores[id]++
				}
			}
		}
	}

	m.questionNumber++

	if m.questionNumber >= len(m.questions) {
		// out of questions: keep the final answers around for the reveal,
		// skip the reserved slot and wait for a last TimeDone to finalize
		m.lastAnswers = copyAnswers(m.playerAnswers)
		m.questionNumber++
		m.timeOut = m.now().Add(QuestionTime + AnswerTime)
		m.complete = true
		return
	}

	next := m.questions[m.questionNumber-1]
	answers := make([]string, 0, len(next.IncorrectAnswers)+1)
	answers = append(answers, next.CorrectAnswer)
	answers = append(answers, next.IncorrectAnswers...)
	m.rnd.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	m.question = domain.MatchQuestion{Question: next, Answers: answers}

	for playerID := range m.playerStatus {
		record := m.persisted[playerID]
		if record.QuestionsSeen == nil {
			record.QuestionsSeen = make(map[int]int)
		}
		record.QuestionsSeen[next.ID]++
		m.persisted[playerID] = record
		m.pendingSeen = append(m.pendingSeen, SeenIncrement{PlayerID: playerID, QuestionID: next.ID})
	}

	m.timeOut = m.now().Add(QuestionTime + AnswerTime)
	m.lastAnswers = copyAnswers(m.playerAnswers)
	for playerID := range m.playerStatus {
		m.playerStatus[playerID] = domain.StatusThinking
		m.playerAnswers[playerID] = domain.NoAnswer
	}
}

// resultLocked assigns WON to every player at the maximum score and LOST
// to the rest, so an all-way tie means everyone wins.
func (m *Match) resultLocked() domain.MatchResult {
	result := make(domain.MatchResult, len(m.playerScores))
	highest := 0
	for _, score := range m.playerScores {
		if score > highest {
			highest = score
		}
	}
	for id, score := range m.playerScores {
		if score >= highest {
			result[id] = domain.OutcomeWon
		} else {
			result[id] = domain.OutcomeLost
		}
	}
	return result
}

// resetLocked returns the match to the lobby for a rematch. Players and
// lobby configuration survive; everything match-scoped is discarded.
func (m *Match) resetLocked() {
	m.questions = nil
	m.question = domain.MatchQuestion{}
	m.questionNumber = 0
	m.correctIndex = 0
	m.complete = false
	m.timeOut = time.Time{}
	m.lastAnswers = make(map[string]int)
	m.playerAnswers = make(map[string]int)
	for playerID := range m.playerStatus {
		m.playerStatus[playerID] = domain.StatusWaiting
		m.playerScores[playerID] = 0
	}
}

func (m *Match) broadcastLocked(action string, result domain.MatchResult) domain.Snapshot {
	snapshot := m.snapshotLocked(action, result)
	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// drop the stale snapshot so a slow replica never blocks dispatch
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return snapshot
}

func (m *Match) snapshotLocked(action string, result domain.MatchResult) domain.Snapshot {
	question := m.question
	question.Answers = append([]string(nil), m.question.Answers...)

	return domain.Snapshot{
		MatchID:            m.id,
		QuestionNumber:     m.questionNumber,
		Question:           question,
		QuestionTotal:      len(m.questions),
		PlayerStatus:       copyStatuses(m.playerStatus),
		PlayerAnswers:      copyAnswers(m.playerAnswers),
		LastAnswers:        copyAnswers(m.lastAnswers),
		PlayerScores:       copyAnswers(m.playerScores),
		TimeOut:            m.timeOut,
		Lang:               m.lang,
		CorrectAnswerIndex: m.correctIndex,
		TimerEnabled:       m.timerEnabled,
		QuestionCount:      m.questionCount,
		Complete:           m.complete,
		LastAction:         action,
		Result:             result,
	}
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func copyAnswers(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyStatuses(src map[string]domain.Status) map[string]domain.Status {
	dst := make(map[string]domain.Status, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
