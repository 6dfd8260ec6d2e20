package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"examgen-server/internal/model"
)

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	parseID := func(name string) (int64, bool) {
		v := q.Get(name)
		if v == "" {
			return 0, true
		}
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}

	topicID, ok := parseID("topic_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid topic_id")
		return
	}
	rubricID, ok := parseID("rubric_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rubric_id")
		return
	}

	status := model.QuestionStatus(q.Get("status"))
	if status != "" && status != model.StatusDraft && status != model.StatusApproved && status != model.StatusRejected {
		respondError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	questions, err := h.store.ListQuestions(topicID, rubricID, status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, questions)
}

// handleUpdateQuestionStatus moves a question through the vetting flow
// (draft, approved, rejected).
func (h *Handler) handleUpdateQuestionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "questionID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid question ID")
		return
	}

	var req struct {
		Status model.QuestionStatus `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	valid := []model.QuestionStatus{model.StatusDraft, model.StatusApproved, model.StatusRejected}
	if !slices.Contains(valid, req.Status) {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.store.UpdateQuestionStatus(id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "question not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "questionID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid question ID")
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
