package handler

import (
	"net/http"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/middleware"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/notify"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	settings *notify.Settings
	log      *logger.Logger
}

func NewNotificationHandler(settings *notify.Settings, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		settings: settings,
		log:      log.WithComponent("notifications"),
	}
}

func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications/settings", h.Get).Methods("GET")
	r.HandleFunc("/notifications/settings", middleware.RequireRole(auth.RoleAdmin, h.Update)).Methods("PUT")
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var next models.NotificationSettings
	if err := decodeJSON(r, &next, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.Update(next); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	h.log.Info("Notification settings updated: email=%v sms=%v inApp=%v",
		next.Email.Enabled, next.SMS.Enabled, next.InApp.Enabled)
	respondJSON(w, http.StatusOK, h.settings.Get())
}
