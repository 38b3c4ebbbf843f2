// Package main mints one token from the command line and prints the result
// as JSON. Useful for smoke-testing a wallet and endpoint configuration
// without running the full service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/endpoint"
	"solana-token-service/internal/mint"
	"solana-token-service/internal/monitor"
)

func main() {
	rpcOverride := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint override")
	rpcCandidates := flag.String("rpc-candidates", os.Getenv("SOLANA_RPC_CANDIDATES"), "Comma-separated ranked RPC candidate URLs")
	walletKey := flag.String("wallet-key", os.Getenv("SERVICE_WALLET_KEY"), "Base58 private key of the minting wallet")
	name := flag.String("name", "", "Token name")
	symbol := flag.String("symbol", "", "Token symbol")
	decimals := flag.Uint("decimals", 9, "Token decimals (0-9)")
	supply := flag.Uint64("supply", 0, "Initial supply in whole tokens")
	creator := flag.String("creator", "", "Creator wallet address receiving the supply")
	revokeMint := flag.Bool("revoke-mint", false, "Revoke the mint authority after issuance")
	revokeFreeze := flag.Bool("revoke-freeze", false, "Revoke the freeze authority after issuance")
	pollInterval := flag.Duration("poll-interval", monitor.DefaultInterval, "Confirmation poll interval")
	maxPollAttempts := flag.Int("max-poll-attempts", monitor.DefaultMaxAttempts, "Max confirmation poll attempts")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall operation timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[mint] ", log.LstdFlags)

	if *walletKey == "" {
		logger.Fatal("--wallet-key is required")
	}
	if *name == "" || *symbol == "" || *supply == 0 || *creator == "" {
		logger.Fatal("--name, --symbol, --supply and --creator are required")
	}
	if *decimals > 9 {
		logger.Fatal("--decimals must be 0-9")
	}

	wallet, err := solanago.PrivateKeyFromBase58(*walletKey)
	if err != nil {
		logger.Fatalf("Invalid wallet key: %v", err)
	}

	var candidates []string
	for _, part := range strings.Split(*rpcCandidates, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			candidates = append(candidates, part)
		}
	}
	if len(candidates) == 0 && *rpcOverride == "" {
		logger.Fatal("--rpc-endpoint or --rpc-candidates is required")
	}

	selector := endpoint.New(endpoint.Options{
		Candidates: candidates,
		Override:   *rpcOverride,
		Logger:     logger,
	})
	mon := monitor.New(monitor.Options{Selector: selector, Logger: logger})

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, mintErr := orchestrator.Mint(ctx, &domain.MintRequest{
		Name:                  *name,
		Symbol:                *symbol,
		Decimals:              uint8(*decimals),
		Supply:                *supply,
		CreatorAddress:        *creator,
		RevokeMintAuthority:   *revokeMint,
		RevokeFreezeAuthority: *revokeFreeze,
	})

	// The partial result is printed even on failure so already-committed
	// on-chain work is never lost.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatalf("Encode result: %v", err)
	}

	if mintErr != nil {
		logger.Fatalf("Mint failed: %v", mintErr)
	}
}
