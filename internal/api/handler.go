// Package api serves the questionnaire forms and the chat over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xaenox/mindmesh-bot/internal/assistant"
	"github.com/xaenox/mindmesh-bot/internal/llm"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/session"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"go.uber.org/zap"
)

type CreateUserRequest struct {
	Username string `json:"username"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type SendMessageResponse struct {
	Reply string `json:"reply"`
}

type SessionResponse struct {
	SessionID  string           `json:"session_id"`
	Username   string           `json:"username"`
	Transcript []models.Message `json:"transcript"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type Handler struct {
	service *assistant.Service
	logger  *zap.Logger
}

func NewHandler(service *assistant.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.CreateUser).Methods("POST")
	router.HandleFunc("/users", h.ListUsers).Methods("GET")
	router.HandleFunc("/users/{username}/knowledge-profile", h.SubmitKnowledgeProfile).Methods("POST")
	router.HandleFunc("/users/{username}/learner-profile", h.SubmitLearnerProfile).Methods("POST")
	router.HandleFunc("/users/{username}/profile", h.GetProfile).Methods("GET")

	router.HandleFunc("/sessions/{username}", h.OpenSession).Methods("POST")
	router.HandleFunc("/sessions/{username}", h.GetSession).Methods("GET")
	router.HandleFunc("/sessions/{username}", h.EndSession).Methods("DELETE")
	router.HandleFunc("/sessions/{username}/messages", h.SendMessage).Methods("POST")
	router.HandleFunc("/sessions/{username}/reset", h.ResetSession).Methods("POST")
}

// NewRouter returns a router with every route plus /health.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(jsonMiddleware)

	h.RegisterRoutes(router)
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	return router
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	h.writeJSONResponse(w, http.StatusOK, users)
}

func (h *Handler) SubmitKnowledgeProfile(w http.ResponseWriter, r *http.Request) {
	var req models.KnowledgeProfile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.service.SubmitKnowledgeProfile(r.Context(), mux.Vars(r)["username"], &req); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, &req)
}

func (h *Handler) SubmitLearnerProfile(w http.ResponseWriter, r *http.Request) {
	var req models.LearnerProfile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.service.SubmitLearnerProfile(r.Context(), mux.Vars(r)["username"], &req); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, &req)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Profile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, p)
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Open(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, SessionResponse{
		SessionID:  sess.ID(),
		Username:   sess.Username(),
		Transcript: sess.Transcript(),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	transcript, ok := h.service.Transcript(username)
	if !ok {
		h.writeErrorResponse(w, http.StatusNotFound, "No open session for "+username)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, SessionResponse{
		Username:   username,
		Transcript: transcript,
	})
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if !h.service.EndSession(username) {
		h.writeErrorResponse(w, http.StatusNotFound, "No open session for "+username)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	reply, err := h.service.SendMessage(r.Context(), mux.Vars(r)["username"], req.Message)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, SendMessageResponse{Reply: reply})
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context(), mux.Vars(r)["username"]); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validationErr *profile.ValidationError
		gatewayErr    *llm.GatewayError
	)

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUserNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict), errors.Is(err, session.ErrSessionBusy):
		return http.StatusConflict
	case errors.As(err, &gatewayErr) && gatewayErr.Timeout():
		return http.StatusGatewayTimeout
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err), zap.Int("status", status))
	}

	resp := ErrorResponse{Error: assistant.UserMessage(err)}
	var validationErr *profile.ValidationError
	if errors.As(err, &validationErr) {
		resp.Fields = validationErr.Fields
	}

	h.writeJSONResponse(w, status, resp)
}

func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
