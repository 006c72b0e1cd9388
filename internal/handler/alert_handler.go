package handler

import (
	"net/http"
	"time"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/middleware"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type AlertHandler struct {
	alertService service.IAlertService
	log          *logger.Logger
}

func NewAlertHandler(alertService service.IAlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		log:          log.WithComponent("alerts"),
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", h.List).Methods("GET")
	r.HandleFunc("/alerts/summary", h.Summary).Methods("GET")
	r.HandleFunc("/alerts/test", middleware.RequireRole(auth.RoleAdmin, h.SendTest)).Methods("POST")
	r.HandleFunc("/alerts/{id}", h.Get).Methods("GET")
	r.HandleFunc("/alerts/{id}/channels", h.Channels).Methods("GET")
	r.HandleFunc("/alerts/{id}/acknowledge", middleware.RequireRole(auth.RoleOperator, h.Acknowledge)).Methods("PUT")
	r.HandleFunc("/alerts/{id}/resolve", middleware.RequireRole(auth.RoleOperator, h.Resolve)).Methods("PUT")
}

// List returns alerts newest first, filtered by ?search=&severity=&status=.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.AlertFilter{Search: query.Get("search")}

	if s := query.Get("severity"); s != "" && s != "all" {
		sev, ok := models.ParseSeverity(s)
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid severity: "+s)
			return
		}
		filter.Severity = sev
	}
	if s := query.Get("status"); s != "" && s != "all" {
		st, ok := models.ParseStatus(s)
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid status: "+s)
			return
		}
		filter.Status = st
	}

	alerts, err := h.alertService.List(r.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list alerts: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.alertService.Summary(r.Context())
	if err != nil {
		h.log.Error("Failed to summarize alerts: %v", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	alert, err := h.alertService.Get(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) Channels(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	channels, err := h.alertService.ChannelsFor(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alertId":  id,
		"channels": channels,
	})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.AcknowledgeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alert, err := h.alertService.Acknowledge(r.Context(), id, actorFor(r, req.Actor))
	if err != nil {
		h.log.Warn("Failed to acknowledge alert %s: %v", id, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.ResolveRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var at time.Time
	if req.At != nil {
		at = req.At.UTC()
	}

	alert, err := h.alertService.Resolve(r.Context(), id, actorFor(r, req.Actor), at)
	if err != nil {
		h.log.Warn("Failed to resolve alert %s: %v", id, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

type testAlertRequest struct {
	Channels *models.ChannelSet `json:"notificationChannels"`
}

// SendTest queues a synthetic alert for delivery. Without a body it goes
// to every channel.
func (h *AlertHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req testAlertRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	channels := models.ChannelSet{Email: true, SMS: true, InApp: true}
	if req.Channels != nil {
		channels = *req.Channels
	}

	if err := h.alertService.SendTestAlert(r.Context(), channels); err != nil {
		h.log.Error("Failed to send test alert: %v", err)
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":  "Test alert queued for delivery",
		"channels": channels.List(),
	})
}
