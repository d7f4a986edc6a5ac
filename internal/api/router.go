package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/api/handler"
	custommiddleware "github.com/thenotsotalentedcoder/sqlite-chatbot/internal/api/middleware"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/config"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, manager *service.Manager) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.LLM.RequestTimeout + 30*time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	uploadHandler := handler.NewUploadHandler(cfg.Upload.Dir, cfg.Upload.MaxSizeMB)
	sessionHandler := handler.NewSessionHandler(manager, cfg.Chat.MaxResultRows)

	r.Get("/health", handler.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/upload", uploadHandler.UploadDatabase)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/schema", sessionHandler.GetSchema)
				r.Post("/ask", sessionHandler.Ask)
				r.Get("/history", sessionHandler.History)
				r.Post("/cancel", sessionHandler.Cancel)
				r.Post("/reset", sessionHandler.Reset)
				r.Delete("/", sessionHandler.Delete)
			})
		})
	})

	return r
}
