// Package http exposes quiz attempts and post segments over REST and websockets.
package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/content"
	"stfc-quiz-service/internal/domain"
)

// PostSource loads blog posts whose HTML may embed quizzes.
type PostSource interface {
	LoadPost(ctx context.Context, postID string) (domain.Post, error)
}

// API serves the REST surface of the quiz widget.
type API struct {
	service *app.QuizService
	posts   PostSource
	log     *zap.Logger
}

func NewAPI(service *app.QuizService, posts PostSource, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{service: service, posts: posts, log: log}
}

// NewRouter wires every route, including the websocket endpoint, behind the
// request logging middleware.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/quizzes/{quizID}/attempts", api.startAttempt)
	mux.HandleFunc("GET /api/attempts/{attemptID}", api.getAttempt)
	mux.HandleFunc("POST /api/attempts/{attemptID}/actions", api.applyAction)
	mux.HandleFunc("DELETE /api/attempts/{attemptID}", api.closeAttempt)
	mux.HandleFunc("GET /api/posts/{postID}/segments", api.postSegments)
	mux.HandleFunc("GET /ws", ws.ServeWS)
	return RequestLogger(api.log, mux)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type segmentsBody struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Segments []domain.Segment `json:"segments"`
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Start(r.Context(), r.PathValue("quizID"))
	if err != nil {
		// The widget renders the load-error view, so it is the body either way.
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrQuizNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, view)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) getAttempt(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.View(r.Context(), r.PathValue("attemptID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) applyAction(w http.ResponseWriter, r *http.Request) {
	var action domain.Action
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_request", Message: "invalid action body"})
		return
	}
	view, err := a.service.Apply(r.Context(), r.PathValue("attemptID"), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) closeAttempt(w http.ResponseWriter, r *http.Request) {
	a.service.Close(r.Context(), r.PathValue("attemptID"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) postSegments(w http.ResponseWriter, r *http.Request) {
	post, err := a.posts.LoadPost(r.Context(), r.PathValue("postID"))
	if err != nil {
		a.log.Warn("post load failed", zap.String("post_id", r.PathValue("postID")), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segmentsBody{
		ID:       post.ID,
		Title:    post.Title,
		Segments: content.Split(post.Content),
	})
}

// statusFor maps domain errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, "attempt_not_found"
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "quiz_not_found"
	case errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action"
	case errors.Is(err, domain.ErrQuizUnavailable):
		return http.StatusBadGateway, "quiz_unavailable"
	case errors.Is(err, domain.ErrPostUnavailable):
		return http.StatusBadGateway, "post_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
