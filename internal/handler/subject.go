package handler

import (
	"net/http"

	"examgen-server/internal/model"
)

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	respondJSON(w, http.StatusOK, subject)
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var sub model.Subject
	if !decodeBody(w, r, &sub) {
		return
	}
	if sub.Name == "" || sub.Code == "" {
		respondError(w, http.StatusBadRequest, "name and code are required")
		return
	}

	id, err := h.store.CreateSubject(sub)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sub.ID = id
	respondJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	var sub model.Subject
	if !decodeBody(w, r, &sub) {
		return
	}
	sub.ID = id
	if err := h.store.UpdateSubject(sub); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	if err := h.store.DeleteSubject(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	topics, err := h.store.ListTopics(id, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func (h *Handler) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	var topic model.Topic
	if !decodeBody(w, r, &topic) {
		return
	}
	if topic.Name == "" {
		respondError(w, http.StatusBadRequest, "topic name is required")
		return
	}
	topic.SubjectID = subjectID

	id, err := h.store.CreateTopic(topic)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	topic.ID = id
	respondJSON(w, http.StatusCreated, topic)
}

func (h *Handler) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "topicID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid topic ID")
		return
	}
	if err := h.store.DeleteTopic(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	docs, err := h.store.ListDocuments(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

// handleUploadDocument indexes reference material for context retrieval.
// Content is chunked and stored per subject, optionally scoped to a topic.
func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathID(r, "subjectID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	if _, err := h.store.GetSubject(subjectID); err != nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	var req struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
		TopicID  *int64 `json:"topic_id,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Filename == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "filename and content are required")
		return
	}

	chunks, err := h.rag.IndexDocument(subjectID, req.TopicID, req.Filename, req.Content)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"chunks":  chunks,
	})
}
