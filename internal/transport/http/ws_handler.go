package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    domain.ActionType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

type actionPayload struct {
	ChoiceID string `json:"choiceId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func stateMessage(view domain.AttemptView) outboundMessage {
	return outboundMessage{Type: "state", Payload: view}
}

func errorMessage(err error) outboundMessage {
	_, code := statusFor(err)
	return outboundMessage{Type: "error", Payload: errorBody{Code: code, Message: err.Error()}}
}

// ServeWS upgrades the request and drives one attempt over the connection.
// ?quizId starts a new attempt, ?attemptId resumes an existing one. Every
// transition is pushed back as a "state" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	attemptID := r.URL.Query().Get("attemptId")
	if quizID == "" && attemptID == "" {
		http.Error(w, "missing quizId or attemptId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if attemptID == "" {
		view, err := h.service.Start(ctx, quizID)
		if err != nil {
			// Load-error view first so the widget can show its message.
			_ = conn.WriteJSON(stateMessage(view))
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
		attemptID = view.AttemptID
	}

	updates, cancel, err := h.service.Subscribe(ctx, attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.String("attempt_id", attemptID), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- stateMessage(view):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var payload actionPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorBody{Code: "invalid_request", Message: "invalid action payload"}}
				continue
			}
		}
		// The resulting view reaches the client through the subscription.
		_, err := h.service.Apply(ctx, attemptID, domain.Action{Type: inbound.Type, ChoiceID: payload.ChoiceID})
		if err != nil {
			send <- errorMessage(err)
			if errors.Is(err, domain.ErrAttemptNotFound) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
