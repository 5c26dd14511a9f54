package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetireIfIdleSparesWatchedAttempts(t *testing.T) {
	created := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	attempt := NewAttemptWithClock("a1", "quiz-1", started(t, singleQuiz(2)), func() time.Time { return created })
	later := created.Add(time.Hour)

	assert.False(t, attempt.retireIfIdle(created), "active at the cutoff")

	_, cancel, ok := attempt.subscribe()
	require.True(t, ok)
	assert.False(t, attempt.retireIfIdle(later), "watched")

	cancel()
	assert.True(t, attempt.retireIfIdle(later))
	assert.False(t, attempt.retireIfIdle(later), "already retired")
}

func TestRetiredAttemptRefusesSubscribersAndActions(t *testing.T) {
	attempt := NewAttempt("a1", "quiz-1", started(t, singleQuiz(2)))
	attempt.retire()

	ch, cancel, ok := attempt.subscribe()
	assert.False(t, ok)
	assert.Nil(t, ch)
	assert.Nil(t, cancel)

	saved := 0
	_, _, ok = attempt.apply(State.Restart, func(Progress) { saved++ })
	assert.False(t, ok)
	assert.Zero(t, saved)
}

func TestApplySavesProgressOfEachTransition(t *testing.T) {
	attempt := NewAttempt("a1", "quiz-1", started(t, singleQuiz(2)))

	var saved []Progress
	save := func(p Progress) { saved = append(saved, p) }
	_, _, ok := attempt.apply(func(s State) State { return s.Select("a") }, save)
	require.True(t, ok)
	_, _, ok = attempt.apply(func(s State) State { return s.Validate().Advance() }, save)
	require.True(t, ok)

	require.Len(t, saved, 2)
	assert.Equal(t, 0, saved[0].Index)
	assert.Empty(t, saved[0].Answers)
	assert.Equal(t, 1, saved[1].Index)
	assert.Equal(t, []string{"a"}, saved[1].Answers["q0"])
	assert.Equal(t, attempt.Progress().Answers, saved[1].Answers)
}
