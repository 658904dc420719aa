package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bidbot-ai/bidbot/internal/api/handlers"
	appMiddleware "github.com/bidbot-ai/bidbot/internal/api/middlewares"
	"github.com/bidbot-ai/bidbot/internal/config"
	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/core/sam"
	"github.com/bidbot-ai/bidbot/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(ctx context.Context, cfg *config.Config, db core.DbClient, samClient *sam.Client, queries *services.QueryService, documents *services.DocumentService, payments *services.PaymentService) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	queryHandler := handlers.NewQueryHandler(queries)
	samHandler := handlers.NewSamHandler(samClient)
	docHandler := handlers.NewDocumentHandler(documents, queries, cfg.UploadDir)
	paymentHandler := handlers.NewPaymentHandler(payments)
	adminHandler := handlers.NewAdminHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Post("/payments/webhook", paymentHandler.Webhook)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Post("/query", queryHandler.ProcessQuery)
			protected.Get("/conversations", queryHandler.RecentConversations)
			protected.Get("/sam/status", samHandler.Status)
			protected.Get("/sam/awards", samHandler.Awards)
			protected.Post("/sam/search", samHandler.Search)
			protected.Post("/documents/upload", docHandler.Upload)
			protected.Get("/documents", docHandler.List)
			protected.Post("/payments/intent", paymentHandler.CreateIntent)

			// admin endpoints
			protected.Group(func(admin chi.Router) {
				admin.Use(appMiddleware.RequireAdmin(db))
				admin.Get("/admin/users", adminHandler.ListUsers)
				admin.Get("/admin/queries", adminHandler.RecentQueries)
				admin.Get("/admin/users/{id}", adminHandler.UserDetails)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
