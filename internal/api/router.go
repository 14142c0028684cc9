package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api/handlers"
	"github.com/riftlane/match-backend/internal/api/middleware"
	"github.com/riftlane/match-backend/internal/config"
	"github.com/riftlane/match-backend/internal/service"
	"github.com/riftlane/match-backend/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	queueHandler := handlers.NewQueueHandler(services.Queue, log)
	proposalHandler := handlers.NewProposalHandler(services.Acceptance, log)
	draftHandler := handlers.NewDraftHandler(services.Draft, log)
	monitorHandler := handlers.NewMonitorHandler(services.Monitor, log)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.JWTSecret, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Route("/queue", func(r chi.Router) {
				r.Post("/join", queueHandler.Join)
				r.Post("/leave", queueHandler.Leave)
				r.Get("/status", queueHandler.Status)
			})

			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Post("/accept", proposalHandler.Accept)
				r.Post("/decline", proposalHandler.Decline)

				r.Route("/monitor", func(r chi.Router) {
					r.Get("/", monitorHandler.Get)
					r.Post("/mute", monitorHandler.Mute)
					r.Post("/live-state", monitorHandler.ReportLiveState)
					r.Post("/end", monitorHandler.End)
					r.Post("/cancel", monitorHandler.Cancel)
				})
			})

			r.Route("/drafts/{matchID}", func(r chi.Router) {
				r.Get("/", draftHandler.Get)
				r.Post("/actions", draftHandler.SubmitAction)
				r.Post("/change-pick", draftHandler.ChangePick)
				r.Post("/confirm", draftHandler.Confirm)
			})
		})

		// WebSocket endpoint authenticates via query token
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
