package handler

import (
	"net/http"
	"strconv"
)

const defaultHistoryLimit = 50

func listLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultHistoryLimit
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.ListExamHistory(listLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleListActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.store.ListActivity(listLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetDashboardStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	stats, err := h.store.GetUserStats(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		respondError(w, http.StatusNotFound, "no stats for user")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
