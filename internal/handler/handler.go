// Package handler exposes the JSON API: subject, topic, rubric, and
// question management plus the generation endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"examgen-server/internal/generate"
	"examgen-server/internal/llm"
	"examgen-server/internal/rag"
	"examgen-server/internal/store"
)

// Config holds handler-level settings.
type Config struct {
	SecureCookies bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	svc      *generate.Service
	selector *llm.Selector
	rag      *rag.Provider
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, svc *generate.Service, selector *llm.Selector, ragProvider *rag.Provider, cfg Config) *Handler {
	return &Handler{store: s, svc: svc, selector: selector, rag: ragProvider, config: cfg}
}

// Routes registers all HTTP routes. Reads are open; mutating routes
// require an authenticated session.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleWelcome)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/me", h.handleCurrentUser)

		r.Get("/subjects", h.handleListSubjects)
		r.Get("/subjects/{subjectID}", h.handleGetSubject)
		r.Get("/subjects/{subjectID}/topics", h.handleListTopics)
		r.Get("/subjects/{subjectID}/documents", h.handleListDocuments)
		r.Get("/rubrics", h.handleListRubrics)
		r.Get("/rubrics/{rubricID}", h.handleGetRubric)
		r.Get("/questions", h.handleListQuestions)
		r.Get("/history", h.handleListHistory)
		r.Get("/activity", h.handleListActivity)
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/stats/{userID}", h.handleUserStats)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/subjects", h.handleCreateSubject)
			r.Put("/subjects/{subjectID}", h.handleUpdateSubject)
			r.Delete("/subjects/{subjectID}", h.handleDeleteSubject)
			r.Post("/subjects/{subjectID}/topics", h.handleCreateTopic)
			r.Delete("/topics/{topicID}", h.handleDeleteTopic)
			r.Post("/subjects/{subjectID}/documents", h.handleUploadDocument)

			r.Post("/rubrics", h.handleCreateRubric)
			r.Put("/rubrics/{rubricID}", h.handleUpdateRubric)
			r.Delete("/rubrics/{rubricID}", h.handleDeleteRubric)

			r.Patch("/questions/{questionID}/status", h.handleUpdateQuestionStatus)
			r.Delete("/questions/{questionID}", h.handleDeleteQuestion)

			r.Post("/generate/rubric/{rubricID}", h.handleGenerateFromRubric)
			r.Post("/generate/questions", h.handleGenerateForTopic)
			r.Post("/generate/from-text", h.handleGenerateFromText)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "examgen",
		"message": "Exam question generation API. See /api/health for status.",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := h.store.Ping() == nil
	localOK := h.selector.LocalAlive(r.Context())

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{
		"database":        dbOK,
		"local_engine":    localOK,
		"cloud_provider":  h.selector.CloudName(),
		"cloud_available": h.selector.CloudAvailable(),
	})
}
