package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/domain"
	"stfc-quiz-service/internal/infra/memory"
)

func TestStartAndPlayThrough(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	require.NotEmpty(t, view.AttemptID)
	assert.Equal(t, domain.PhaseInProgress, view.Phase)
	assert.Equal(t, 2, view.Total)
	require.NotNil(t, view.Question)
	assert.Equal(t, "q1", view.Question.ID)

	steps := []domain.Action{
		{Type: domain.ActionSelect, ChoiceID: "o2"},
		{Type: domain.ActionValidate},
		{Type: domain.ActionNext},
		{Type: domain.ActionSelect, ChoiceID: "x"},
		{Type: domain.ActionValidate},
		{Type: domain.ActionNext},
	}
	for _, step := range steps {
		view, err = service.Apply(ctx, view.AttemptID, step)
		require.NoError(t, err)
	}

	require.Equal(t, domain.PhaseCompleted, view.Phase)
	require.NotNil(t, view.Result)
	assert.Equal(t, 2, view.Result.Correct)
	assert.Equal(t, 100, view.Result.Percentage)
	assert.Equal(t, "Amiral", view.Result.Grade.Label)

	view, err = service.Apply(ctx, view.AttemptID, domain.Action{Type: domain.ActionRestart})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInProgress, view.Phase)
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, 0, view.Answered)
}

func TestStartReportsLoadError(t *testing.T) {
	service, store := newTestService()

	view, err := service.Start(context.Background(), "quiz-unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuizNotFound))
	assert.Equal(t, domain.PhaseLoadError, view.Phase)
	assert.Equal(t, "quiz-unknown", view.QuizID)
	assert.Equal(t, domain.LoadErrorMessage, view.Message)
	assert.Equal(t, 0, store.Len())
}

func TestApplyErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.Apply(ctx, "nope", domain.Action{Type: domain.ActionNext})
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	_, err = service.Apply(ctx, view.AttemptID, domain.Action{Type: "warp"})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestInvalidTransitionsAreIgnored(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)

	for _, a := range []domain.ActionType{domain.ActionNext, domain.ActionPrev, domain.ActionValidate} {
		got, err := service.Apply(ctx, view.AttemptID, domain.Action{Type: a})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Index)
		assert.False(t, got.Validated)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)

	ch, cancel, err := service.Subscribe(ctx, view.AttemptID)
	require.NoError(t, err)
	defer cancel()

	<-ch // initial snapshot

	_, err = service.Apply(ctx, view.AttemptID, domain.Action{Type: domain.ActionSelect, ChoiceID: "o1"})
	require.NoError(t, err)

	update := <-ch
	assert.Equal(t, []string{"o1"}, update.Selection)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	ch, cancel, err := service.Subscribe(ctx, view.AttemptID)
	require.NoError(t, err)
	<-ch

	service.Close(ctx, view.AttemptID)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, store.Len())
	cancel() // safe after close
}

func TestSweepDropsIdleAttempts(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	idle, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	watched, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	_, cancel, err := service.Subscribe(ctx, watched.AttemptID)
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, 0, service.Sweep(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, service.Sweep(time.Millisecond))

	_, err = service.View(ctx, idle.AttemptID)
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
	assert.Equal(t, 1, store.Len())
}

func newTestService() (*app.QuizService, *memory.AttemptStore) {
	store := memory.NewAttemptStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Premier contact",
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Who built the Phoenix?",
					Type: domain.QuestionSingle,
					Choices: []domain.Choice{
						{ID: "o1", Text: "Jean-Luc Picard"},
						{ID: "o2", Text: "Zefram Cochrane"},
					},
					Correct: []string{"o2"},
				},
				{
					ID:   "q2",
					Text: "Select the Vulcans",
					Type: domain.QuestionMultiple,
					Choices: []domain.Choice{
						{ID: "x", Text: "Spock's father"},
						{ID: "y", Text: "Worf"},
					},
					Correct: []string{"x"},
				},
			},
		},
	}), 5*time.Minute)
	return app.NewQuizService(store, quizRepo, domain.DefaultGradeScale, zap.NewNop()), store
}

func TestSlowSubscriberGetsLatestView(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	ch, cancel, err := service.Subscribe(ctx, view.AttemptID)
	require.NoError(t, err)
	defer cancel()

	// Twenty actions, more than the subscriber buffer, without reading.
	done := make(chan domain.AttemptView)
	go func() {
		var last domain.AttemptView
		for i := 0; i < 20; i++ {
			choice := "o1"
			if i%2 == 1 {
				choice = "o2"
			}
			last, _ = service.Apply(ctx, view.AttemptID, domain.Action{Type: domain.ActionSelect, ChoiceID: choice})
		}
		done <- last
	}()

	var final domain.AttemptView
	select {
	case final = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("apply blocked on a slow subscriber")
	}
	assert.Equal(t, []string{"o2"}, final.Selection)

	var received []domain.AttemptView
	for drained := false; !drained; {
		select {
		case v := <-ch:
			received = append(received, v)
		default:
			drained = true
		}
	}
	require.NotEmpty(t, received)
	assert.LessOrEqual(t, len(received), 8)
	assert.Equal(t, final, received[len(received)-1])
}

func TestSubscribeAfterSweepFails(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.Start(ctx, "quiz-1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, service.Sweep(time.Millisecond))

	_, _, err = service.Subscribe(ctx, view.AttemptID)
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
	_, err = service.Apply(ctx, view.AttemptID, domain.Action{Type: domain.ActionNext})
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
}
