package router

import (
	"net/http"

	"remote-shoot-backend/internal/handlers"
	"remote-shoot-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// New builds the HTTP router.
func New(
	sessionHandler *handlers.SessionHandler,
	signalingHandler *handlers.SignalingHandler,
	photoHandler *handlers.PhotoHandler,
	wsHandler *handlers.WebSocketHandler,
	contactHandler *handlers.ContactHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", sessionHandler.CreateSession)
		r.Get("/sessions", sessionHandler.GetSession)
		r.Patch("/sessions", sessionHandler.UpdateSession)

		r.Post("/signaling", signalingHandler.Publish)
		r.Get("/signaling", signalingHandler.Poll)

		r.Post("/photos", photoHandler.Upload)

		r.Post("/bookly", sessionHandler.CreateBookingSession)
		if contactHandler != nil {
			r.Post("/contact", contactHandler.Send)
		}
	})

	// WebSocket signaling subscription
	r.Get("/ws/signaling", wsHandler.Subscribe)

	return r
}
