package handlers

import (
	"net/http"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api/middleware"
	"github.com/riftlane/match-backend/internal/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub       *websocket.Hub
	jwtSecret string
	log       *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, jwtSecret string, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, jwtSecret: jwtSecret, log: log}
}

// Handle authenticates via a token query parameter since browsers cannot
// set headers on websocket upgrades, then hands the connection to the hub.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	playerID, err := middleware.ParseToken(token, h.jwtSecret)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, playerID, h.log)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
