package domain

import "encoding/json"

// QuestionType tells how many choices a question expects.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

// Difficulty is an optional label shown next to a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Choice represents a possible answer for a question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models a prompt with its choices and answer key.
// Correct is expected to be a non-empty subset of the choice ids, but a
// question violating that is still playable: it just cannot be answered right.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Image       string       `json:"image,omitempty"`
	Type        QuestionType `json:"type"`
	Choices     []Choice     `json:"choices"`
	Correct     []string     `json:"correct"`
	Difficulty  Difficulty   `json:"difficulty,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

// Multiple reports whether the question uses toggle selection.
func (q Question) Multiple() bool {
	return q.Type == QuestionMultiple
}

// HasChoice reports whether id names one of the question's choices.
func (q Question) HasChoice(id string) bool {
	for _, c := range q.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	Questions []Question `json:"questions"`
}

// AnswerRecord maps a question id to the choice ids validated for it.
// A missing key means the question has not been answered in this attempt.
type AnswerRecord map[string][]string

// Clone returns a deep copy of the record.
func (r AnswerRecord) Clone() AnswerRecord {
	out := make(AnswerRecord, len(r))
	for k, v := range r {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// QuizResult is derived once every question has been traversed.
type QuizResult struct {
	Correct    int   `json:"correct"`
	Total      int   `json:"total"`
	Percentage int   `json:"percentage"`
	Grade      Grade `json:"grade"`
}

// Phase names the state of an attempt.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseLoadError  Phase = "load_error"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// QuestionView is a question as sent to players: the answer key is withheld.
type QuestionView struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Image      string       `json:"image,omitempty"`
	Type       QuestionType `json:"type"`
	Choices    []Choice     `json:"choices"`
	Difficulty Difficulty   `json:"difficulty,omitempty"`
}

// Feedback is revealed once the current question has been validated.
type Feedback struct {
	Correct        bool     `json:"correct"`
	CorrectChoices []string `json:"correctChoices"`
	Explanation    string   `json:"explanation,omitempty"`
}

// AttemptView is the client-facing snapshot of an attempt.
type AttemptView struct {
	AttemptID string        `json:"attemptId,omitempty"`
	QuizID    string        `json:"quizId"`
	Title     string        `json:"title,omitempty"`
	Phase     Phase         `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Answered  int           `json:"answered"`
	Question  *QuestionView `json:"question,omitempty"`
	Selection []string      `json:"selection"`
	Validated bool          `json:"validated"`
	Feedback  *Feedback     `json:"feedback,omitempty"`
	Result    *QuizResult   `json:"result,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// ActionType names a player interaction with an attempt.
type ActionType string

const (
	ActionSelect   ActionType = "select"
	ActionValidate ActionType = "validate"
	ActionNext     ActionType = "next"
	ActionPrev     ActionType = "prev"
	ActionRestart  ActionType = "restart"
)

// Action is one player interaction. ChoiceID is only used by select.
type Action struct {
	Type     ActionType `json:"type"`
	ChoiceID string     `json:"choiceId,omitempty"`
}

// SegmentKind tags a piece of split post content.
type SegmentKind string

const (
	SegmentHTML SegmentKind = "html"
	SegmentQuiz SegmentKind = "quiz"
)

// Segment is either literal HTML or a quiz to mount in its place.
type Segment struct {
	Kind   SegmentKind `json:"kind"`
	HTML   string      `json:"html,omitempty"`
	QuizID int         `json:"quizId,omitempty"`
}

// MarshalJSON always writes quizId on quiz segments, including id 0, and
// never on HTML segments.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.Kind == SegmentQuiz {
		return json.Marshal(struct {
			Kind   SegmentKind `json:"kind"`
			QuizID int         `json:"quizId"`
		}{s.Kind, s.QuizID})
	}
	type plain Segment
	return json.Marshal(plain(s))
}

// Post is a blog post fetched from the content backend.
type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
