// Package server wires repositories, services, and handlers into the HTTP server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	accounthandler "personnel-registry/backend/internal/account/handler"
	accountrepo "personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/account/service"
	"personnel-registry/backend/internal/audit"
	audithandler "personnel-registry/backend/internal/audit/handler"
	auditrepo "personnel-registry/backend/internal/audit/repository"
	"personnel-registry/backend/internal/audit/stream"
	"personnel-registry/backend/internal/config"
	"personnel-registry/backend/internal/db"
	"personnel-registry/backend/internal/security"
	"personnel-registry/backend/internal/server/middleware"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	recorder   *audit.AsyncRecorder
	producer   stream.Producer
}

// New constructs a fully wired Server from config: database, security primitives,
// async audit recorder (with optional Kafka fan-out), and routes.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	hasher := security.NewHasher(cfg.Argon2MemoryKiB, cfg.Argon2Time, cfg.Argon2Parallelism)
	tokens := security.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())

	producer := stream.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	auditRepo := auditrepo.NewPostgresRepository(dbConn)
	var streamProducer stream.Producer
	if producer != nil {
		streamProducer = producer
	}
	recorder := audit.NewAsyncRecorder(auditRepo, streamProducer, cfg.AuditQueueSize)

	userRepo := accountrepo.NewPostgresRepository(dbConn)
	accounts := service.NewAccountService(userRepo, hasher, tokens, recorder)

	router := chi.NewRouter()
	router.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Logger,
		chimw.Timeout(60*time.Second),
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens, userRepo))
		accounthandler.NewAccountHandler(accounts).Routes(r)
		audithandler.NewAuditHandler(auditRepo).Routes(r)
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		recorder:   recorder,
		producer:   streamProducer,
	}, nil
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, drains the audit queue, and releases resources.
// The recorder is closed only after the server has stopped so no request can
// enqueue against a closed queue.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.recorder.Close()
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
