package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"examgen-server/internal/generate"
	"examgen-server/internal/llm"
	"examgen-server/internal/model"
)

func (h *Handler) handleGenerateFromRubric(w http.ResponseWriter, r *http.Request) {
	rubricID, ok := pathID(r, "rubricID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rubric ID")
		return
	}

	var req struct {
		Topic      string `json:"topic,omitempty"`
		BloomLevel string `json:"bloom_level,omitempty"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.GenerateFromRubric(r.Context(), rubricID, generate.RubricParams{
		Topic:      req.Topic,
		BloomLevel: model.BloomLevel(req.BloomLevel),
		Engine:     llm.ParseEngine(r.URL.Query().Get("engine")),
	})
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "rubric not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondRun(w, result)
}

func (h *Handler) handleGenerateForTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID  int64  `json:"subject_id"`
		Topic      string `json:"topic"`
		BloomLevel string `json:"bloom_level,omitempty"`
		Count      int    `json:"count,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SubjectID == 0 || req.Topic == "" {
		respondError(w, http.StatusBadRequest, "subject_id and topic are required")
		return
	}

	result, err := h.svc.GenerateForTopic(r.Context(), generate.TopicParams{
		SubjectID:  req.SubjectID,
		Topic:      req.Topic,
		BloomLevel: model.BloomLevel(req.BloomLevel),
		Count:      req.Count,
		Engine:     llm.ParseEngine(r.URL.Query().Get("engine")),
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondRun(w, result)
}

func (h *Handler) handleGenerateFromText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Count int    `json:"count,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.GenerateFromText(r.Context(), req.Text, req.Count,
		llm.ParseEngine(r.URL.Query().Get("engine")))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondRun(w, result)
}

// respondRun renders a generation run. A failed persistence write is a
// server error, but the generated questions ride along so nothing is lost.
func (h *Handler) respondRun(w http.ResponseWriter, result *generate.RunResult) {
	if result.PersistError != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"error":     result.PersistError.Error(),
			"questions": result.Questions,
			"log":       result.Log,
		})
		return
	}

	message := "Questions generated successfully."
	switch {
	case result.CacheHit:
		message = "Questions returned from cache."
	case result.FallbackUsed:
		message = "Some questions are placeholders; generation partially failed."
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"run_id":              result.RunID,
		"provider":            result.Provider,
		"cache_hit":           result.CacheHit,
		"fallback_used":       result.FallbackUsed,
		"questions_generated": len(result.Questions),
		"questions":           result.Questions,
		"log":                 result.Log,
		"message":             message,
	})
}
