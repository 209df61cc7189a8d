// Package server wires the HTTP router, middleware, and all dependencies.
//
// This is the composition root: main creates a Config and a logger, and
// everything else — database, gateway client, services, handlers, routes —
// is assembled here. Each layer only receives the interface it needs, so
// the handler never touches the database and the service never touches HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/TreasureWejeyan/My-backendNo1/internal/auth"
	"github.com/TreasureWejeyan/My-backendNo1/internal/config"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
	"github.com/TreasureWejeyan/My-backendNo1/internal/handler"
	"github.com/TreasureWejeyan/My-backendNo1/internal/middleware"
	sqliteRepo "github.com/TreasureWejeyan/My-backendNo1/internal/repository/sqlite"
	"github.com/TreasureWejeyan/My-backendNo1/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown, most importantly the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	gatewayClient := gateway.NewClient(s.config.GatewaySecret, s.config.GatewayBaseURL)

	userService := service.NewUserService(s.db, s.db, passwords, tokens, s.config.AppBaseURL, s.logger)
	rechargeService := service.NewRechargeService(s.db, s.db, gatewayClient, s.config.CallbackURL, s.logger)
	reconcileService := service.NewReconcileService(s.db, s.db, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	paymentHandler := handler.NewPaymentHandler(rechargeService, gatewayClient, reconcileService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/signup", userHandler.HandleSignup)
	s.router.Post("/signin", userHandler.HandleSignin)
	s.router.Get("/user/{uid}", userHandler.HandleGetUser)
	s.router.Post("/activity", userHandler.HandleActivity)

	s.router.Post("/recharge", paymentHandler.HandleRecharge)
	s.router.Post("/paystack/webhook", paymentHandler.HandleWebhook)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", userHandler.HandleMe)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests (30s limit) and closes the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("gateway", s.config.GatewayBaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
