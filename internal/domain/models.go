package domain

import "time"

// Language is a supported catalog language code.
type Language string

const (
	LangEN Language = "en"
	LangRU Language = "ru"
	LangES Language = "es"
	LangPT Language = "pt"
)

// SupportedLanguages lists the catalog languages shipped with the game.
var SupportedLanguages = []Language{LangEN, LangRU, LangES, LangPT}

// Supported reports whether lang has a catalog.
func (l Language) Supported() bool {
	for _, s := range SupportedLanguages {
		if s == l {
			return true
		}
	}
	return false
}

// Status is a player's state within the current question.
type Status string

const (
	// StatusWaiting is the lobby state before the match starts.
	StatusWaiting Status = "WAITING"
	// StatusThinking means a question is active and the player hasn't answered.
	StatusThinking Status = "THINKING"
	// StatusReady means the player has submitted an answer.
	StatusReady Status = "READY"
	// StatusFastest marks the first accepted answer for the question.
	StatusFastest Status = "FASTEST"
)

// Answered reports whether the status represents a submitted answer.
func (s Status) Answered() bool {
	return s == StatusReady || s == StatusFastest
}

// Outcome is a player's end-of-match result.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// NoAnswer is the sentinel stored while a player hasn't picked an answer.
const NoAnswer = -1

// Question is an immutable catalog record.
type Question struct {
	ID               int      `json:"id"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Image            string   `json:"image,omitempty"`
}

// MatchQuestion is a catalog question prepared for play: the correct and
// incorrect answers mixed into a single shuffled sequence.
type MatchQuestion struct {
	Question
	Answers []string `json:"answers"`
}

// Catalog is a full language question set, loaded once at startup.
type Catalog struct {
	Lang      Language   `json:"lang"`
	Questions []Question `json:"questions"`
}

// SeenRecord is the per-player cross-match history consumed by the
// question selector. A missing record behaves as an empty map.
type SeenRecord struct {
	QuestionsSeen map[int]int `json:"questionsSeen"`
}

// Clone returns a deep copy so match state never aliases store state.
func (r SeenRecord) Clone() SeenRecord {
	seen := make(map[int]int, len(r.QuestionsSeen))
	for id, n := range r.QuestionsSeen {
		seen[id] = n
	}
	return SeenRecord{QuestionsSeen: seen}
}

// MatchResult maps every player to WON or LOST. Everyone at the maximum
// score wins, so multi-way ties produce multiple winners.
type MatchResult map[string]Outcome

// Snapshot is the read-only view of a match broadcast to every replica
// after each applied action. LastAction names the action that produced
// the update so clients can decide whether to play feedback (e.g. no
// right/wrong sound on a timeout-driven advance).
type Snapshot struct {
	MatchID            string            `json:"matchId"`
	QuestionNumber     int               `json:"questionNumber"`
	Question           MatchQuestion     `json:"question"`
	QuestionTotal      int               `json:"questionTotal"`
	PlayerStatus       map[string]Status `json:"playerStatus"`
	PlayerAnswers      map[string]int    `json:"playerAnswers"`
	LastAnswers        map[string]int    `json:"lastAnswers"`
	PlayerScores       map[string]int    `json:"playerScores"`
	TimeOut            time.Time         `json:"timeOut"`
	Lang               Language          `json:"lang"`
	CorrectAnswerIndex int               `json:"correctAnswerIndex"`
	TimerEnabled       bool              `json:"timerEnabled"`
	QuestionCount      int               `json:"questionCount"`
	Complete           bool              `json:"complete"`
	LastAction         string            `json:"lastAction"`
	Result             MatchResult       `json:"result,omitempty"`
}
