package handler

import (
	"net/http"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/middleware"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type ThresholdHandler struct {
	thresholdService *service.ThresholdService
	log              *logger.Logger
}

func NewThresholdHandler(thresholdService *service.ThresholdService, log *logger.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		thresholdService: thresholdService,
		log:              log.WithComponent("thresholds"),
	}
}

func (h *ThresholdHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/thresholds", h.List).Methods("GET")
	r.HandleFunc("/thresholds/reset", middleware.RequireRole(auth.RoleAdmin, h.Reset)).Methods("POST")
	r.HandleFunc("/thresholds/{id}", h.Get).Methods("GET")
	r.HandleFunc("/thresholds/{id}", middleware.RequireRole(auth.RoleOperator, h.Update)).Methods("PUT")
}

func (h *ThresholdHandler) List(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.thresholdService.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list thresholds: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"policy":     h.thresholdService.Policy(),
		"thresholds": thresholds,
	})
}

func (h *ThresholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.thresholdService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, t)
}

func (h *ThresholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateThresholdRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.thresholdService.Update(r.Context(), id, req)
	if err != nil {
		h.log.Warn("Rejected update of threshold %s: %v", id, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (h *ThresholdHandler) Reset(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.thresholdService.Reset(r.Context())
	if err != nil {
		h.log.Error("Failed to reset thresholds: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	h.log.Info("Thresholds reset to defaults")
	respondJSON(w, http.StatusOK, thresholds)
}
