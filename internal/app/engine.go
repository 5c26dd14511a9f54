package app

import (
	"fmt"

	"stfc-quiz-service/internal/domain"
)

// State is one step of a quiz attempt. Every transition returns a new State
// and leaves the receiver untouched, so a State can be shared freely.
// Transitions that do not apply to the current state return it unchanged.
type State struct {
	phase  domain.Phase
	quiz   domain.Quiz
	grades domain.GradeScale

	index     int
	selection []string
	validated bool
	answers   domain.AnswerRecord

	result *domain.QuizResult
	err    error
}

// Loading is the initial state, before the quiz definition is known.
func Loading(grades domain.GradeScale) State {
	return State{phase: domain.PhaseLoading, grades: grades}
}

// Loaded moves a loading attempt to the first question, or to LoadError when
// the definition cannot be played.
func (s State) Loaded(quiz domain.Quiz) State {
	if s.phase != domain.PhaseLoading {
		return s
	}
	if err := checkQuiz(quiz); err != nil {
		return s.Failed(err)
	}
	next := s
	next.phase = domain.PhaseInProgress
	next.quiz = quiz
	next.index = 0
	next.selection = nil
	next.validated = false
	next.answers = domain.AnswerRecord{}
	return next
}

// Failed records a retrieval failure. There is no automatic retry.
func (s State) Failed(err error) State {
	if s.phase != domain.PhaseLoading {
		return s
	}
	if err == nil {
		err = domain.ErrQuizUnavailable
	}
	return State{phase: domain.PhaseLoadError, grades: s.grades, err: err}
}

// Select applies the single/multiple selection rule to the current question.
// Unknown choices and frozen questions are ignored.
func (s State) Select(choiceID string) State {
	q, ok := s.Current()
	if !ok || s.validated || !q.HasChoice(choiceID) {
		return s
	}

	next := s
	if !q.Multiple() {
		next.selection = []string{choiceID}
		return next
	}

	picked := make(map[string]bool, len(s.selection)+1)
	for _, id := range s.selection {
		picked[id] = true
	}
	picked[choiceID] = !picked[choiceID]

	// Keep the selection in choice order so equal sets compare equal.
	next.selection = nil
	for _, c := range q.Choices {
		if picked[c.ID] {
			next.selection = append(next.selection, c.ID)
			picked[c.ID] = false
		}
	}
	return next
}

// Validate freezes the current selection into the answer record.
func (s State) Validate() State {
	q, ok := s.Current()
	if !ok || s.validated || len(s.selection) == 0 {
		return s
	}
	next := s
	next.answers = s.answers.Clone()
	next.answers[q.ID] = append([]string(nil), s.selection...)
	next.validated = true
	return next
}

// Advance moves to the next question, or completes the attempt on the last one.
// A question without choices cannot be validated and may be skipped.
func (s State) Advance() State {
	q, ok := s.Current()
	if !ok {
		return s
	}
	if !s.validated && len(q.Choices) > 0 {
		return s
	}

	if s.index == len(s.quiz.Questions)-1 {
		result := Score(s.quiz, s.answers, s.grades)
		next := s
		next.phase = domain.PhaseCompleted
		next.selection = nil
		next.validated = false
		next.result = &result
		return next
	}
	return s.moveTo(s.index + 1)
}

// Retreat goes back one question and restores its saved answer.
func (s State) Retreat() State {
	if s.phase != domain.PhaseInProgress || s.index == 0 {
		return s
	}
	return s.moveTo(s.index - 1)
}

// Restart clears every answer and goes back to the first question.
func (s State) Restart() State {
	if s.phase != domain.PhaseInProgress && s.phase != domain.PhaseCompleted {
		return s
	}
	next := s
	next.phase = domain.PhaseInProgress
	next.index = 0
	next.selection = nil
	next.validated = false
	next.answers = domain.AnswerRecord{}
	next.result = nil
	return next
}

func (s State) moveTo(index int) State {
	next := s
	next.index = index
	next.selection = nil
	next.validated = false
	if saved, ok := s.answers[s.quiz.Questions[index].ID]; ok {
		next.selection = append([]string(nil), saved...)
		next.validated = true
	}
	return next
}

// Current returns the question under the cursor while the attempt is active.
func (s State) Current() (domain.Question, bool) {
	if s.phase != domain.PhaseInProgress {
		return domain.Question{}, false
	}
	return s.quiz.Questions[s.index], true
}

func (s State) Phase() domain.Phase { return s.phase }

func (s State) Quiz() domain.Quiz { return s.quiz }

func (s State) Index() int { return s.index }

func (s State) Validated() bool { return s.validated }

// Err is the load failure behind a LoadError state.
func (s State) Err() error { return s.err }

// Answers returns a copy of the answer record.
func (s State) Answers() domain.AnswerRecord { return s.answers.Clone() }

// Selection returns a copy of the pending or restored selection.
func (s State) Selection() []string {
	return append([]string(nil), s.selection...)
}

// Result is set only once the attempt is completed.
func (s State) Result() (domain.QuizResult, bool) {
	if s.result == nil {
		return domain.QuizResult{}, false
	}
	return *s.result, true
}

// View projects the state for clients, withholding the answer key of a
// question that has not been validated yet.
func (s State) View() domain.AttemptView {
	view := domain.AttemptView{
		QuizID:    s.quiz.ID,
		Title:     s.quiz.Title,
		Phase:     s.phase,
		Index:     s.index,
		Total:     len(s.quiz.Questions),
		Answered:  len(s.answers),
		Selection: s.Selection(),
		Validated: s.validated,
	}
	if view.Selection == nil {
		view.Selection = []string{}
	}

	switch s.phase {
	case domain.PhaseLoadError:
		view.Message = domain.LoadErrorMessage
	case domain.PhaseCompleted:
		result := *s.result
		view.Result = &result
	case domain.PhaseInProgress:
		q := s.quiz.Questions[s.index]
		view.Question = &domain.QuestionView{
			ID:         q.ID,
			Text:       q.Text,
			Image:      q.Image,
			Type:       q.Type,
			Choices:    append([]domain.Choice(nil), q.Choices...),
			Difficulty: q.Difficulty,
		}
		if s.validated {
			view.Feedback = &domain.Feedback{
				Correct:        IsCorrect(q, s.selection),
				CorrectChoices: append([]string{}, q.Correct...),
				Explanation:    q.Explanation,
			}
		}
	}
	return view
}

// checkQuiz rejects definitions the engine cannot walk through. Questions with
// no choices or no answer key are accepted.
func checkQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}
	seen := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question without id", domain.ErrMalformedQuiz)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", domain.ErrMalformedQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
