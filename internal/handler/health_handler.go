package handler

import (
	"context"
	"net/http"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"

	"github.com/gorilla/mux"
)

// HealthChecker is a dependency whose availability is reported on /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports on the optional journal database and MQTT bus. A
// nil checker means the subsystem is disabled and is not counted against
// readiness.
type HealthHandler struct {
	db   HealthChecker
	mqtt HealthChecker
	log  *logger.Logger
}

func NewHealthHandler(db, mqtt HealthChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:   db,
		mqtt: mqtt,
		log:  log.WithComponent("health"),
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func check(ctx context.Context, c HealthChecker) (up bool, err error) {
	if c == nil {
		return false, nil
	}
	if err := c.Health(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}

	dbUp, dbErr := check(ctx, h.db)
	mqttUp, mqttErr := check(ctx, h.mqtt)
	response.Services.Database = dbUp
	response.Services.MQTT = mqttUp

	if dbErr != nil || mqttErr != nil {
		response.Status = "degraded"
		h.log.Warn("Health check degraded - DB: %v, MQTT: %v", dbErr, mqttErr)
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_, dbErr := check(ctx, h.db)
	_, mqttErr := check(ctx, h.mqtt)

	if dbErr != nil || mqttErr != nil {
		h.log.Warn("Readiness check failed - DB: %v, MQTT: %v", dbErr, mqttErr)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
