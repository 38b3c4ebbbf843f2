// Package main runs the token mint service: RPC endpoint failover, the mint
// orchestrator, transaction status polling, retry scheduling, and webhook
// dispatch behind one HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-token-service/internal/endpoint"
	"solana-token-service/internal/httpapi"
	"solana-token-service/internal/metadata"
	"solana-token-service/internal/mint"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/retry"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/storage"
	chstore "solana-token-service/internal/storage/clickhouse"
	"solana-token-service/internal/storage/memory"
	"solana-token-service/internal/storage/migrations"
	pgstore "solana-token-service/internal/storage/postgres"
	"solana-token-service/internal/webhook"
)

// defaultCandidates is the ranked public endpoint list used when no explicit
// candidates are configured. An --rpc-endpoint override is always tried first.
var defaultCandidates = []string{
	"https://api.mainnet-beta.solana.com",
	"https://solana-api.projectserum.com",
	"https://rpc.ankr.com/solana",
}

type stores struct {
	tokenStore   storage.TokenRecordStore
	webhookStore storage.WebhookStore
	eventStore   storage.TransactionEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcOverride := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint override, tried before the candidate list")
	rpcCandidates := flag.String("rpc-candidates", os.Getenv("SOLANA_RPC_CANDIDATES"), "Comma-separated ranked RPC candidate URLs")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional confirmation fast path)")
	walletKey := flag.String("wallet-key", os.Getenv("SERVICE_WALLET_KEY"), "Base58 private key of the service minting wallet")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	pollInterval := flag.Duration("poll-interval", monitor.DefaultInterval, "Status poll interval")
	maxPollAttempts := flag.Int("max-poll-attempts", monitor.DefaultMaxAttempts, "Max status poll attempts")
	retryMaxAttempts := flag.Int("retry-max-attempts", retry.DefaultMaxAttempts, "Max retry attempts")
	backoffFactor := flag.Float64("backoff-factor", retry.DefaultBackoffFactor, "Retry backoff multiplier")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *walletKey == "" {
		logger.Fatal("--wallet-key is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	wallet, err := solanago.PrivateKeyFromBase58(*walletKey)
	if err != nil {
		logger.Fatalf("Invalid wallet key: %v", err)
	}
	logger.Printf("Service wallet: %s", wallet.PublicKey())

	candidates := defaultCandidates
	if *rpcCandidates != "" {
		candidates = splitList(*rpcCandidates)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	selector := endpoint.New(endpoint.Options{
		Candidates: candidates,
		Override:   *rpcOverride,
		Logger:     logger,
	})

	dispatcher := webhook.NewDispatcher(st.webhookStore, webhook.DispatcherOptions{Logger: logger})
	defer dispatcher.Close()

	var ws solana.WSClient
	if *wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket endpoint unavailable, falling back to HTTP polling: %v", err)
		} else {
			ws = wsClient
			defer wsClient.Close()
		}
	}

	mon := monitor.New(monitor.Options{
		Selector: selector,
		Notifier: dispatcher,
		WS:       ws,
		Logger:   logger,
	})

	scheduler := retry.New(retry.Options{
		Confirmer: mon,
		Notifier:  dispatcher,
		Logger:    logger,
	})

	orchestrator := mint.New(mint.Options{
		Selector:  selector,
		Confirmer: mon,
		Wallet:    wallet,
		Poll: monitor.PollOptions{
			MaxAttempts: *maxPollAttempts,
			Interval:    *pollInterval,
		},
		Logger: logger,
	})

	server := httpapi.NewServer(httpapi.Config{
		Minter:     orchestrator,
		Monitor:    mon,
		Scheduler:  scheduler,
		Registry:   webhook.NewRegistry(st.webhookStore),
		Dispatcher: dispatcher,
		Checker:    metadata.New(metadata.Options{Logger: logger}),
		Selector:   selector,
		TokenStore: st.tokenStore,
		EventStore: st.eventStore,
		Retry: retry.ScheduleOptions{
			MaxAttempts:   *retryMaxAttempts,
			BackoffFactor: *backoffFactor,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Router(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}
	}()

	logger.Printf("Defaults: poll %s x %d attempts, retry %d attempts, backoff %.1fx",
		*pollInterval, *maxPollAttempts, *retryMaxAttempts, *backoffFactor)
	logger.Printf("Listening on %s", *listenAddr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	// Drain in-flight retry loops before the stores close.
	scheduler.Wait()
	logger.Println("Shutdown complete")
}

// createStores builds the storage layer: in-memory maps, or PostgreSQL plus
// the ClickHouse event archive with migrations applied at boot.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			tokenStore:   memory.NewTokenRecordStore(),
			webhookStore: memory.NewWebhookStore(),
			eventStore:   memory.NewTransactionEventStore(),
		}
		return st, func() {}, nil
	}

	if err := migrations.RunPostgresMigrations(ctx, postgresDSN, logger); err != nil {
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	logger.Println("Storage ready: postgres + clickhouse")

	st := &stores{
		tokenStore:   pgstore.NewTokenRecordStore(pool),
		webhookStore: pgstore.NewWebhookStore(pool),
		eventStore:   chstore.NewTransactionEventStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
