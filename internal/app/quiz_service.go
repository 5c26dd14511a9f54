package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/domain"
)

// AttemptRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type AttemptRepository interface {
	Put(attempt *Attempt)
	Get(attemptID string) (*Attempt, bool)
	// Save is called under the attempt lock after every transition so
	// snapshots reach the store in transition order.
	Save(progress Progress)
	Delete(attemptID string)
	Range(fn func(*Attempt) bool)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizService runs quiz attempts on top of the engine.
type QuizService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	grades   domain.GradeScale
	log      *zap.Logger
	newID    func() string
	now      func() time.Time
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, grades domain.GradeScale, log *zap.Logger) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{
		attempts: attempts,
		quizzes:  quizzes,
		grades:   grades,
		log:      log,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Start loads a quiz and opens a new attempt on its first question.
// When loading fails the returned view is in the load_error phase and the
// attempt is not kept.
func (s *QuizService) Start(ctx context.Context, quizID string) (domain.AttemptView, error) {
	state := Loading(s.grades)

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		state = state.Failed(err)
	} else {
		state = state.Loaded(quiz)
	}
	if state.Phase() == domain.PhaseLoadError {
		s.log.Warn("quiz load failed", zap.String("quiz_id", quizID), zap.Error(state.Err()))
		view := state.View()
		view.QuizID = quizID
		return view, fmt.Errorf("load quiz %s: %w", quizID, state.Err())
	}

	attempt := newAttemptWithClock(s.newID(), quizID, state, s.now)
	s.attempts.Put(attempt)
	s.log.Info("attempt started",
		zap.String("attempt_id", attempt.id),
		zap.String("quiz_id", quizID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return attempt.View(), nil
}

// View returns the current snapshot of an attempt.
func (s *QuizService) View(_ context.Context, attemptID string) (domain.AttemptView, error) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.AttemptView{}, domain.ErrAttemptNotFound
	}
	return attempt.View(), nil
}

// Apply runs one user action against an attempt. Actions that do not fit the
// current state leave it unchanged.
func (s *QuizService) Apply(_ context.Context, attemptID string, action domain.Action) (domain.AttemptView, error) {
	transition, err := transitionFor(action)
	if err != nil {
		return domain.AttemptView{}, err
	}
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.AttemptView{}, domain.ErrAttemptNotFound
	}

	before, view, ok := attempt.apply(transition, s.attempts.Save)
	if !ok {
		return domain.AttemptView{}, domain.ErrAttemptNotFound
	}

	if before != domain.PhaseCompleted && view.Phase == domain.PhaseCompleted {
		s.log.Info("attempt completed",
			zap.String("attempt_id", attemptID),
			zap.String("quiz_id", view.QuizID),
			zap.Int("correct", view.Result.Correct),
			zap.Int("total", view.Result.Total),
			zap.Int("percentage", view.Result.Percentage),
		)
	} else {
		s.log.Debug("attempt action",
			zap.String("attempt_id", attemptID),
			zap.String("action", string(action.Type)),
			zap.Int("index", view.Index),
		)
	}
	return view, nil
}

// Subscribe returns a channel that receives views of an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, attemptID string) (<-chan domain.AttemptView, func(), error) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return nil, nil, domain.ErrAttemptNotFound
	}
	ch, cancel, ok := attempt.subscribe()
	if !ok {
		return nil, nil, domain.ErrAttemptNotFound
	}
	return ch, cancel, nil
}

// Close drops an attempt and ends its subscriptions.
func (s *QuizService) Close(_ context.Context, attemptID string) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return
	}
	attempt.retire()
	s.attempts.Delete(attemptID)
}

// Sweep removes attempts idle for longer than idle that nobody watches.
// The idle check and retirement happen under the attempt lock, so a
// subscriber arriving during a sweep either keeps the attempt alive or gets
// ErrAttemptNotFound.
func (s *QuizService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []string
	s.attempts.Range(func(a *Attempt) bool {
		if a.retireIfIdle(cutoff) {
			stale = append(stale, a.ID())
		}
		return true
	})
	for _, id := range stale {
		s.attempts.Delete(id)
	}
	if len(stale) > 0 {
		s.log.Debug("swept idle attempts", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func transitionFor(action domain.Action) (func(State) State, error) {
	switch action.Type {
	case domain.ActionSelect:
		choiceID := action.ChoiceID
		return func(s State) State { return s.Select(choiceID) }, nil
	case domain.ActionValidate:
		return State.Validate, nil
	case domain.ActionNext:
		return State.Advance, nil
	case domain.ActionPrev:
		return State.Retreat, nil
	case domain.ActionRestart:
		return State.Restart, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action.Type)
	}
}

// Attempt is one player's walk through a quiz.
type Attempt struct {
	id          string
	quizID      string
	createdAt   time.Time
	now         func() time.Time
	mu          sync.RWMutex
	state       State
	lastActive  time.Time
	retired     bool
	subscribers map[chan domain.AttemptView]struct{}
}

// NewAttempt is exported for infrastructure layers that need to seed attempts.
func NewAttempt(id, quizID string, state State) *Attempt {
	return newAttemptWithClock(id, quizID, state, time.Now)
}

// NewAttemptWithClock is test-only for deterministic timestamps.
func NewAttemptWithClock(id, quizID string, state State, now func() time.Time) *Attempt {
	return newAttemptWithClock(id, quizID, state, now)
}

func newAttemptWithClock(id, quizID string, state State, now func() time.Time) *Attempt {
	created := now()
	return &Attempt{
		id:          id,
		quizID:      quizID,
		createdAt:   created,
		now:         now,
		state:       state,
		lastActive:  created,
		subscribers: make(map[chan domain.AttemptView]struct{}),
	}
}

func (a *Attempt) ID() string { return a.id }

func (a *Attempt) QuizID() string { return a.quizID }

// State returns the current engine state.
func (a *Attempt) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// LastActive is the time of the last transition.
func (a *Attempt) LastActive() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastActive
}

// Progress is a serialisable summary of an attempt.
type Progress struct {
	AttemptID  string              `json:"attemptId"`
	QuizID     string              `json:"quizId"`
	Phase      domain.Phase        `json:"phase"`
	Index      int                 `json:"index"`
	Answers    domain.AnswerRecord `json:"answers"`
	CreatedAt  time.Time           `json:"createdAt"`
	LastActive time.Time           `json:"lastActive"`
}

// Progress snapshots where the player stands.
func (a *Attempt) Progress() Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progressLocked()
}

func (a *Attempt) progressLocked() Progress {
	return Progress{
		AttemptID:  a.id,
		QuizID:     a.quizID,
		Phase:      a.state.Phase(),
		Index:      a.state.Index(),
		Answers:    a.state.Answers(),
		CreatedAt:  a.createdAt,
		LastActive: a.lastActive,
	}
}

// View returns the client snapshot of the attempt.
func (a *Attempt) View() domain.AttemptView {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.viewLocked()
}

// apply runs a transition, hands the new progress to save and broadcasts the
// view. It reports false once the attempt has been retired.
func (a *Attempt) apply(transition func(State) State, save func(Progress)) (domain.Phase, domain.AttemptView, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired {
		return "", domain.AttemptView{}, false
	}

	before := a.state.Phase()
	a.state = transition(a.state)
	a.lastActive = a.now()
	save(a.progressLocked())
	return before, a.broadcastLocked(), true
}

// retireIfIdle retires the attempt when it has been inactive since before
// cutoff and nobody is subscribed.
func (a *Attempt) retireIfIdle(cutoff time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired || len(a.subscribers) > 0 || !a.lastActive.Before(cutoff) {
		return false
	}
	a.retired = true
	return true
}

// retire ends every subscription and refuses further actions.
func (a *Attempt) retire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retired = true
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) subscribe() (<-chan domain.AttemptView, func(), bool) {
	ch := make(chan domain.AttemptView, 8)

	a.mu.Lock()
	if a.retired {
		a.mu.Unlock()
		return nil, nil, false
	}
	a.subscribers[ch] = struct{}{}
	// The buffer is empty, so this cannot block, and the initial view is
	// queued ahead of any later broadcast.
	ch <- a.viewLocked()
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel, true
}

func (a *Attempt) broadcastLocked() domain.AttemptView {
	view := a.viewLocked()
	for ch := range a.subscribers {
		select {
		case ch <- view:
		default:
			// Slow subscriber: drop its oldest view so the latest one gets through.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (a *Attempt) viewLocked() domain.AttemptView {
	view := a.state.View()
	view.AttemptID = a.id
	view.QuizID = a.quizID
	return view
}
