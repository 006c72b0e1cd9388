package handler

import (
	"net/http"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/websocket"

	"github.com/gorilla/mux"
)

type WebSocketHandler struct {
	hub *websocket.Hub
	log *logger.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log.WithComponent("ws")}
}

func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.Serve).Methods("GET")
}

func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, w, r, h.log)
}
