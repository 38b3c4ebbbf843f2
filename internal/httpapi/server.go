// Package httpapi exposes the token service over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/metadata"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/retry"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/storage"
	"solana-token-service/internal/webhook"
)

// Minter runs the token creation sequence. Satisfied by mint.Orchestrator.
type Minter interface {
	Mint(ctx context.Context, req *domain.MintRequest) (*domain.MintResult, error)
}

// Server wires the HTTP surface to the subsystem components.
type Server struct {
	minter     Minter
	monitor    *monitor.Monitor
	scheduler  *retry.Scheduler
	registry   *webhook.Registry
	dispatcher *webhook.Dispatcher
	checker    *metadata.Checker
	selector   monitor.ClientSelector
	tokenStore storage.TokenRecordStore
	eventStore storage.TransactionEventStore
	retryOpts  retry.ScheduleOptions
	logger     *log.Logger
	startedAt  time.Time
}

// Config wires a Server.
type Config struct {
	Minter     Minter
	Monitor    *monitor.Monitor
	Scheduler  *retry.Scheduler
	Registry   *webhook.Registry
	Dispatcher *webhook.Dispatcher
	Checker    *metadata.Checker
	Selector   monitor.ClientSelector
	TokenStore storage.TokenRecordStore
	// EventStore is optional; nil disables transaction event archiving.
	EventStore storage.TransactionEventStore
	// Retry carries the configured defaults for retry enrollment.
	Retry  retry.ScheduleOptions
	Logger *log.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		minter:     cfg.Minter,
		monitor:    cfg.Monitor,
		scheduler:  cfg.Scheduler,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		checker:    cfg.Checker,
		selector:   cfg.Selector,
		tokenStore: cfg.TokenStore,
		eventStore: cfg.EventStore,
		retryOpts:  cfg.Retry,
		logger:     logger,
		startedAt:  time.Now().UTC(),
	}
}

// Router builds the chi router for the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/tokens", func(r chi.Router) {
		r.Post("/", s.handleCreateToken)
		r.Post("/webhook", s.handleRegisterWebhook)
		r.Post("/webhook/notify", s.handleWebhookNotify)
		r.Post("/monitor", s.handleMonitor)
		r.Get("/transaction/{signature}", s.handleGetTransaction)
		r.Get("/analyze/{signature}", s.handleAnalyze)
		r.Get("/record/{mintAddress}", s.handleGetTokenRecord)
		r.Get("/creator/{wallet}", s.handleGetCreatorTokens)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", observability.Handler())

	return r
}

// rpcClient resolves a live RPC client for read-only handlers.
func (s *Server) rpcClient(ctx context.Context) (solana.RPCClient, error) {
	client, _, err := s.selector.Select(ctx)
	return client, err
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("[http] encode response: %v", err)
	}
}

// writeError writes the standard error shape.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
