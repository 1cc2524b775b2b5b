package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/supportbot/internal/api"
	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/cloo-solutions/supportbot/internal/service"
	"github.com/cloo-solutions/supportbot/internal/telemetry"
)

type ChatService interface {
	Answer(ctx context.Context, sessionID, question string) (*service.Answer, error)
}

type ChatHandler struct {
	svc     ChatService
	metrics *metrics.Metrics
}

func NewChatHandler(svc ChatService, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{svc: svc, metrics: m}
}

// ChatRequest accepts "message" as an alias of "question" for older widgets.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
}

func (r ChatRequest) question() string {
	if strings.TrimSpace(r.Question) != "" {
		return r.Question
	}
	return r.Message
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.ChatRequest(strconv.Itoa(http.StatusBadRequest))
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Answer(r.Context(), req.SessionID, req.question())
	if err != nil {
		status := api.DomainErrorToHTTP(err)
		h.metrics.ChatRequest(strconv.Itoa(status))
		if status >= http.StatusInternalServerError {
			logging.FromContext(r.Context()).Error("chat failed",
				"code", domain.ErrorCode(err),
				"error", err)
			telemetry.CaptureError(r.Context(), err)
		}
		api.HandleError(w, err)
		return
	}

	h.metrics.ChatRequest(strconv.Itoa(http.StatusOK))
	api.JSON(w, http.StatusOK, ChatResponse{Answer: answer.Text})
}

// MethodNotAllowed keeps the JSON error shape for wrong verbs on /chat.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

type HealthResponse struct {
	Status string `json:"status"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HealthResponse{Status: "ok"})
}
