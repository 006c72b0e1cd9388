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

type RuleHandler struct {
	ruleService *service.RuleService
	log         *logger.Logger
}

func NewRuleHandler(ruleService *service.RuleService, log *logger.Logger) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		log:         log.WithComponent("rules"),
	}
}

func (h *RuleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/rules", h.List).Methods("GET")
	r.HandleFunc("/rules", middleware.RequireRole(auth.RoleAdmin, h.Create)).Methods("POST")
	r.HandleFunc("/rules/{id}", h.Get).Methods("GET")
	r.HandleFunc("/rules/{id}", middleware.RequireRole(auth.RoleAdmin, h.Update)).Methods("PUT")
	r.HandleFunc("/rules/{id}", middleware.RequireRole(auth.RoleAdmin, h.Delete)).Methods("DELETE")
	r.HandleFunc("/rules/{id}/enabled", middleware.RequireRole(auth.RoleOperator, h.SetEnabled)).Methods("PUT")
	r.HandleFunc("/rules/{id}/channels/{channel}", middleware.RequireRole(auth.RoleOperator, h.SetChannel)).Methods("PUT")
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ruleService.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list rules: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.ruleService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule models.AlertRule
	if err := decodeJSON(r, &rule, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.ruleService.Create(r.Context(), rule)
	if err != nil {
		h.log.Warn("Rejected rule %q: %v", rule.ID, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateRuleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.ruleService.Update(r.Context(), id, req)
	if err != nil {
		h.log.Warn("Rejected update of rule %s: %v", id, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.ruleService.Delete(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RuleHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req toggleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	rule, err := h.ruleService.SetEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) SetChannel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ch, ok := models.ParseChannel(vars["channel"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown channel: "+vars["channel"])
		return
	}

	var req toggleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	rule, err := h.ruleService.SetChannel(r.Context(), vars["id"], ch, *req.Enabled)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rule)
}
