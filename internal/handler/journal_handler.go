package handler

import (
	"context"
	"net/http"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/repository"

	"github.com/gorilla/mux"
)

type HistoryReader interface {
	History(ctx context.Context, alertID string) ([]repository.JournalEntry, error)
}

// JournalHandler serves the persisted lifecycle trail of an alert.
type JournalHandler struct {
	journal HistoryReader
	log     *logger.Logger
}

func NewJournalHandler(journal HistoryReader, log *logger.Logger) *JournalHandler {
	return &JournalHandler{journal: journal, log: log.WithComponent("journal")}
}

func (h *JournalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts/{id}/history", h.History).Methods("GET")
}

func (h *JournalHandler) History(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entries, err := h.journal.History(r.Context(), id)
	if err != nil {
		h.log.Error("Failed to read journal for alert %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to read alert history")
		return
	}
	if len(entries) == 0 {
		respondError(w, http.StatusNotFound, "No history for alert "+id)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
