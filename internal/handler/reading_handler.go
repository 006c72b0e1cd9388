package handler

import (
	"net/http"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/metrics"
	"FarmMonitorAPI/internal/middleware"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type ReadingHandler struct {
	telemetryService *service.TelemetryService
	log              *logger.Logger
}

func NewReadingHandler(telemetryService *service.TelemetryService, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{
		telemetryService: telemetryService,
		log:              log.WithComponent("readings"),
	}
}

func (h *ReadingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/readings", middleware.RequireRole(auth.RoleOperator, h.Ingest)).Methods("POST")
	r.HandleFunc("/readings/latest", h.Latest).Methods("GET")
}

// Ingest accepts one reading over HTTP and returns its classification
// together with any alerts it fired.
func (h *ReadingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var msg models.ReadingMessage
	if err := decodeJSON(r, &msg, false); err != nil {
		metrics.ReadingsRejected.WithLabelValues("http").Inc()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reading, err := h.telemetryService.Decode(msg)
	if err != nil {
		metrics.ReadingsRejected.WithLabelValues("http").Inc()
		respondError(w, statusFor(err), err.Error())
		return
	}

	result, err := h.telemetryService.Ingest(r.Context(), reading)
	if err != nil {
		h.log.Error("Failed to ingest %s reading: %v", reading.SensorKey, err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *ReadingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.telemetryService.Latest())
}
