package domain

import "errors"

var (
	// ErrAttemptNotFound is returned when an attempt id is unknown or expired.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrQuizNotFound indicates the quiz content does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizUnavailable indicates the quiz could not be retrieved or parsed.
	ErrQuizUnavailable = errors.New("quiz unavailable")
	// ErrEmptyQuiz is returned for a quiz definition without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrMalformedQuiz is returned when question ids are missing or repeated.
	ErrMalformedQuiz = errors.New("malformed quiz definition")
	// ErrUnknownAction indicates an unsupported attempt action type.
	ErrUnknownAction = errors.New("unknown action")
	// ErrPostUnavailable indicates a blog post could not be retrieved.
	ErrPostUnavailable = errors.New("post unavailable")
)

// LoadErrorMessage is the message shown in place of a quiz that failed to load.
const LoadErrorMessage = "Impossible de charger le quiz. Veuillez réessayer plus tard."
