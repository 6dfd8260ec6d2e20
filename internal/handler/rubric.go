package handler

import (
	"errors"
	"net/http"
	"strconv"

	"examgen-server/internal/model"
)

func (h *Handler) handleListRubrics(w http.ResponseWriter, r *http.Request) {
	var subjectID int64
	if v := r.URL.Query().Get("subject_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid subject_id")
			return
		}
		subjectID = id
	}

	rubrics, err := h.store.ListRubrics(subjectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rubrics)
}

func (h *Handler) handleGetRubric(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "rubricID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rubric ID")
		return
	}
	rubric, err := h.store.GetRubric(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "rubric not found")
		return
	}
	respondJSON(w, http.StatusOK, rubric)
}

func (h *Handler) handleCreateRubric(w http.ResponseWriter, r *http.Request) {
	var rubric model.Rubric
	if !decodeBody(w, r, &rubric) {
		return
	}
	if rubric.Name == "" || rubric.SubjectID == 0 {
		respondError(w, http.StatusBadRequest, "name and subject_id are required")
		return
	}
	if _, err := h.store.GetSubject(rubric.SubjectID); err != nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	id, err := h.store.CreateRubric(rubric)
	if err != nil {
		var verr *model.RubricValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := h.store.GetRubric(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateRubric(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "rubricID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rubric ID")
		return
	}
	var rubric model.Rubric
	if !decodeBody(w, r, &rubric) {
		return
	}
	rubric.ID = id

	if err := h.store.UpdateRubric(rubric); err != nil {
		var verr *model.RubricValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := h.store.GetRubric(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteRubric(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "rubricID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid rubric ID")
		return
	}
	if err := h.store.DeleteRubric(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
