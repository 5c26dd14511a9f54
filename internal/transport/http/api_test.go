package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/domain"
	"stfc-quiz-service/internal/infra/memory"
)

type stubPosts map[string]domain.Post

func (s stubPosts) LoadPost(_ context.Context, postID string) (domain.Post, error) {
	post, ok := s[postID]
	if !ok {
		return domain.Post{}, fmt.Errorf("%w: %s", domain.ErrPostUnavailable, postID)
	}
	return post, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewAttemptStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewQuizService(store, quizRepo, domain.DefaultGradeScale, zap.NewNop())
	posts := stubPosts{
		"12": {ID: "12", Title: "Quiz du mois", Content: `<p>Avant</p>[stfc_quiz id="42"]<p>Après</p>`},
	}

	router := NewRouter(NewAPI(service, posts, zap.NewNop()), NewWSHandler(service, zap.NewNop()))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAttemptRESTFlow(t *testing.T) {
	server := newTestServer(t)

	var view domain.AttemptView
	status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes/quiz-1/attempts", nil, &view)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, view.AttemptID)
	assert.Equal(t, domain.PhaseInProgress, view.Phase)
	require.NotNil(t, view.Question)
	assert.Equal(t, "q1", view.Question.ID)

	actions := server.URL + "/api/attempts/" + view.AttemptID + "/actions"
	for _, action := range []domain.Action{
		{Type: domain.ActionSelect, ChoiceID: "o2"},
		{Type: domain.ActionValidate},
		{Type: domain.ActionNext},
		{Type: domain.ActionSelect, ChoiceID: "a"},
		{Type: domain.ActionSelect, ChoiceID: "c"},
		{Type: domain.ActionValidate},
	} {
		status = doJSON(t, http.MethodPost, actions, action, &view)
		require.Equal(t, http.StatusOK, status, "action %s", action.Type)
	}
	require.NotNil(t, view.Feedback)
	assert.True(t, view.Feedback.Correct)

	status = doJSON(t, http.MethodPost, actions, domain.Action{Type: domain.ActionNext}, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.PhaseCompleted, view.Phase)
	require.NotNil(t, view.Result)
	assert.Equal(t, 2, view.Result.Correct)
	assert.Equal(t, 100, view.Result.Percentage)
	assert.Equal(t, 1, view.Result.Grade.Tier)

	var fetched domain.AttemptView
	status = doJSON(t, http.MethodGet, server.URL+"/api/attempts/"+view.AttemptID, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, view, fetched)

	status = doJSON(t, http.MethodDelete, server.URL+"/api/attempts/"+view.AttemptID, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)

	var body errorBody
	status = doJSON(t, http.MethodGet, server.URL+"/api/attempts/"+view.AttemptID, nil, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "attempt_not_found", body.Code)
}

func TestStartAttemptLoadError(t *testing.T) {
	server := newTestServer(t)

	var view domain.AttemptView
	status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes/missing/attempts", nil, &view)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, domain.PhaseLoadError, view.Phase)
	assert.Equal(t, domain.LoadErrorMessage, view.Message)
	assert.Empty(t, view.AttemptID)

	status = doJSON(t, http.MethodPost, server.URL+"/api/quizzes/empty/attempts", nil, &view)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, domain.PhaseLoadError, view.Phase)
}

func TestApplyActionErrors(t *testing.T) {
	server := newTestServer(t)

	var view domain.AttemptView
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, server.URL+"/api/quizzes/quiz-1/attempts", nil, &view))
	actions := server.URL + "/api/attempts/" + view.AttemptID + "/actions"

	var body errorBody
	status := doJSON(t, http.MethodPost, actions, domain.Action{Type: "jump"}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown_action", body.Code)

	req, err := http.NewRequest(http.MethodPost, actions, bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status = doJSON(t, http.MethodPost, server.URL+"/api/attempts/nope/actions", domain.Action{Type: domain.ActionNext}, &body)
	assert.Equal(t, http.StatusNotFound, status)

	// An action that does not fit the state is ignored, not rejected.
	status = doJSON(t, http.MethodPost, actions, domain.Action{Type: domain.ActionNext}, &view)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, view.Index)
}

func TestPostSegments(t *testing.T) {
	server := newTestServer(t)

	var body segmentsBody
	status := doJSON(t, http.MethodGet, server.URL+"/api/posts/12/segments", nil, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Quiz du mois", body.Title)
	assert.Equal(t, []domain.Segment{
		{Kind: domain.SegmentHTML, HTML: "<p>Avant</p>"},
		{Kind: domain.SegmentQuiz, QuizID: 42},
		{Kind: domain.SegmentHTML, HTML: "<p>Après</p>"},
	}, body.Segments)

	var errBody errorBody
	status = doJSON(t, http.MethodGet, server.URL+"/api/posts/99/segments", nil, &errBody)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "post_unavailable", errBody.Code)
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Starfleet",
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Quel est le numéro de l'Enterprise-D ?",
					Type: domain.QuestionSingle,
					Choices: []domain.Choice{
						{ID: "o1", Text: "NCC-1701"},
						{ID: "o2", Text: "NCC-1701-D"},
						{ID: "o3", Text: "NX-01"},
					},
					Correct: []string{"o2"},
				},
				{
					ID:   "q2",
					Text: "Quelles espèces siègent à la Fédération ?",
					Type: domain.QuestionMultiple,
					Choices: []domain.Choice{
						{ID: "a", Text: "Vulcains"},
						{ID: "b", Text: "Borgs"},
						{ID: "c", Text: "Andoriens"},
					},
					Correct: []string{"a", "c"},
				},
			},
		},
		"empty": {ID: "empty", Title: "Vide"},
	}
}
