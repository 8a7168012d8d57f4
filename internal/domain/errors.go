package domain

import "errors"

var (
	// ErrMatchNotFound is returned when a match has not been initialized.
	ErrMatchNotFound = errors.New("match not found")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in match")
	// ErrCatalogNotFound indicates the question catalog could not be loaded.
	ErrCatalogNotFound = errors.New("question catalog not found")
	// ErrUnknownLanguage indicates a language without a catalog.
	ErrUnknownLanguage = errors.New("unsupported language")

	// Rejections: the action was legal to send but not applicable in the
	// current phase. Dispatch treats these as no-ops, never as failures.

	// ErrAlreadyStarted rejects start/config actions once a match is underway.
	ErrAlreadyStarted = errors.New("match already started")
	// ErrNoActiveQuestion rejects answers while no question is open.
	ErrNoActiveQuestion = errors.New("no question is active")
	// ErrStaleTimeout rejects a timeout report for a question already passed.
	ErrStaleTimeout = errors.New("stale timeout report")
	// ErrInvalidAnswerIndex rejects answer indexes outside the 4 choices.
	ErrInvalidAnswerIndex = errors.New("answer index out of range")
	// ErrInvalidQuestionCount rejects match lengths other than 5, 10 or 20.
	ErrInvalidQuestionCount = errors.New("question count must be 5, 10 or 20")
	// ErrAlreadyAnswered rejects a second answer for the same question.
	ErrAlreadyAnswered = errors.New("player already answered this question")
)

// IsRejection reports whether err is a phase rejection rather than a real
// failure. Transports log rejections and carry on; the match state is
// guaranteed untouched.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrAlreadyStarted),
		errors.Is(err, ErrNoActiveQuestion),
		errors.Is(err, ErrStaleTimeout),
		errors.Is(err, ErrInvalidAnswerIndex),
		errors.Is(err, ErrInvalidQuestionCount),
		errors.Is(err, ErrAlreadyAnswered):
		return true
	}
	return false
}
