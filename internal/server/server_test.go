package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/handler"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/notify"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/service"
	"FarmMonitorAPI/internal/service/utils"
	"FarmMonitorAPI/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		},
	}

	engine := utils.NewRuleEngine()
	hub := websocket.NewHub(log)
	thresholds := service.NewThresholdService(repository.NewThresholdRepository(config.DefaultThresholds()), models.ToleranceAdvisory, log)
	rules := service.NewRuleService(repository.NewRuleRepository(), thresholds, engine, log)
	require.NoError(t, rules.Seed(context.Background(), config.DefaultRules()))
	alerts := service.NewAlertService(repository.NewAlertRepository(), hub, nil, log)
	telemetry := service.NewTelemetryService(thresholds, rules, engine, alerts, hub, log)

	srv := New(cfg, log)
	srv.RegisterHandlers(context.Background(), Handlers{
		Readings:      handler.NewReadingHandler(telemetry, log),
		Thresholds:    handler.NewThresholdHandler(thresholds, log),
		Rules:         handler.NewRuleHandler(rules, log),
		Alerts:        handler.NewAlertHandler(alerts, log),
		Notifications: handler.NewNotificationHandler(notify.NewSettings(models.NotificationSettings{}), log),
		Health:        handler.NewHealthHandler(nil, nil, log),
		WebSocket:     handler.NewWebSocketHandler(hub, log),
	}, nil)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/rules", http.StatusOK},
		{http.MethodGet, "/api/v1/thresholds/Humidity", http.StatusOK},
		{http.MethodGet, "/api/v1/alerts/summary", http.StatusOK},
		{http.MethodOptions, "/api/v1/rules/temp_high/enabled", http.StatusNoContent},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/api/v1/rules"`), "http metrics use the route template")
}
