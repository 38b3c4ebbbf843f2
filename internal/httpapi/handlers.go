package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"solana-token-service/internal/analysis"
	"solana-token-service/internal/domain"
	"solana-token-service/internal/endpoint"
	"solana-token-service/internal/mint"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/storage"
	"solana-token-service/internal/webhook"
)

type createTokenRequest struct {
	Name                        string            `json:"name"`
	Symbol                      string            `json:"symbol"`
	Decimals                    uint8             `json:"decimals"`
	Supply                      uint64            `json:"supply"`
	CreatorWallet               string            `json:"creatorWallet"`
	MetadataURI                 string            `json:"metadataUri,omitempty"`
	RequireAccessibleMetadata   bool              `json:"requireAccessibleMetadata,omitempty"`
	RevokeMintAuthority         bool              `json:"revokeMintAuthority,omitempty"`
	RevokeFreezeAuthority       bool              `json:"revokeFreezeAuthority,omitempty"`
	WebhookURL                  string            `json:"webhookUrl,omitempty"`
	WebhookFilters              map[string]string `json:"webhookFilters,omitempty"`
	EnableTransactionMonitoring bool              `json:"enableTransactionMonitoring,omitempty"`
	EnableAutoRetry             bool              `json:"enableAutoRetry,omitempty"`
}

type tokenResponse struct {
	Name                          string                       `json:"name"`
	Symbol                        string                       `json:"symbol"`
	Decimals                      uint8                        `json:"decimals"`
	Supply                        uint64                       `json:"supply"`
	CreatorWallet                 string                       `json:"creatorWallet"`
	MintAddress                   string                       `json:"mintAddress,omitempty"`
	CreatorTokenAccount           string                       `json:"creatorTokenAccount,omitempty"`
	MintSignature                 string                       `json:"mintSignature,omitempty"`
	SupplySignature               string                       `json:"supplySignature,omitempty"`
	AuthorityRevocationSignatures []domain.RevocationSignature `json:"authorityRevocationSignatures,omitempty"`
	Warnings                      []string                     `json:"warnings,omitempty"`
	Metadata                      *domain.MetadataValidation   `json:"metadata,omitempty"`
	WebhookID                     string                       `json:"webhookId,omitempty"`
	MonitoringID                  string                       `json:"monitoringId,omitempty"`
	RetryID                       string                       `json:"retryId,omitempty"`
}

// handleCreateToken runs the full mint sequence. The response always
// distinguishes "token not created" (no mint address) from "token created
// with incomplete follow-up" (mint address present, warnings populated), so
// callers never double-submit after a partial success.
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateCreateToken(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token := &tokenResponse{
		Name:          req.Name,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
		Supply:        req.Supply,
		CreatorWallet: req.CreatorWallet,
	}

	// Metadata accessibility is advisory; it blocks the mint only when the
	// caller asked for that.
	if req.MetadataURI != "" && s.checker != nil {
		token.Metadata = s.checker.Validate(r.Context(), req.MetadataURI)
		if req.RequireAccessibleMetadata && !token.Metadata.Valid {
			s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success":  false,
				"error":    "metadata is not accessible: " + token.Metadata.Reason,
				"metadata": token.Metadata,
			})
			return
		}
	}

	// Reject a malformed callback URL up front; the registration itself
	// waits until the mint address exists so the webhook can be scoped to it.
	if req.WebhookURL != "" {
		if err := webhook.ValidateURL(req.WebhookURL); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	mintReq := &domain.MintRequest{
		Name:                  req.Name,
		Symbol:                req.Symbol,
		Decimals:              req.Decimals,
		Supply:                req.Supply,
		CreatorAddress:        req.CreatorWallet,
		MetadataURI:           req.MetadataURI,
		RevokeMintAuthority:   req.RevokeMintAuthority,
		RevokeFreezeAuthority: req.RevokeFreezeAuthority,
	}

	result, mintErr := s.minter.Mint(r.Context(), mintReq)
	token.MintAddress = result.MintAddress
	token.CreatorTokenAccount = result.CreatorTokenAccount
	token.MintSignature = result.MintSignature
	token.SupplySignature = result.SupplySignature
	token.AuthorityRevocationSignatures = result.AuthorityRevocationSignatures
	token.Warnings = result.Warnings

	s.finalizeMint(r.Context(), req, result, token, mintErr)

	if req.EnableTransactionMonitoring && result.MintSignature != "" {
		token.MonitoringID = s.monitor.Start(result.MintSignature, monitor.PollOptions{
			Address: result.MintAddress,
		})
	}

	if mintErr != nil {
		s.respondMintFailure(w, r, req, token, mintErr)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// finalizeMint runs the bookkeeping that follows a created mint: the
// caller's webhook registered against the new mint address, the durable
// token record, the event archive, and the token.mint notification. No-op
// when no mint was created.
func (s *Server) finalizeMint(ctx context.Context, req createTokenRequest, result *domain.MintResult, token *tokenResponse, mintErr error) {
	if result.MintAddress == "" {
		return
	}

	// Scoped to the one mint this request created, so the callback never
	// sees events for other tokens.
	if req.WebhookURL != "" {
		hook, err := s.registry.Register(ctx, webhook.RegisterInput{
			URL:       req.WebhookURL,
			Addresses: []string{result.MintAddress},
			Filters:   req.WebhookFilters,
		})
		if err != nil {
			s.logger.Printf("[http] register webhook for %s: %v", result.MintAddress, err)
		} else {
			token.WebhookID = hook.WebhookID
		}
	}

	s.recordToken(ctx, req, result, mintErr)
	s.archiveMintEvents(result)
	s.dispatcher.Dispatch(ctx, webhook.Event{
		Type:    domain.NotifyTokenMint,
		Address: result.MintAddress,
		Fields: map[string]string{
			"symbol":      req.Symbol,
			"mintAddress": result.MintAddress,
		},
		Data: token,
	})
}

// respondMintFailure maps a mint error onto the partial-result response. When
// the chain rejected the creation transaction and the caller opted into auto
// retry, the whole request is enrolled for re-submission.
func (s *Server) respondMintFailure(w http.ResponseWriter, r *http.Request, req createTokenRequest, token *tokenResponse, mintErr error) {
	status := http.StatusInternalServerError
	if errors.Is(mintErr, endpoint.ErrAllEndpointsUnreachable) {
		status = http.StatusServiceUnavailable
	}

	var txErr *mint.TransactionFailedError
	if req.EnableAutoRetry && token.MintAddress == "" && errors.As(mintErr, &txErr) {
		mintReq := &domain.MintRequest{
			Name:                  req.Name,
			Symbol:                req.Symbol,
			Decimals:              req.Decimals,
			Supply:                req.Supply,
			CreatorAddress:        req.CreatorWallet,
			MetadataURI:           req.MetadataURI,
			RevokeMintAuthority:   req.RevokeMintAuthority,
			RevokeFreezeAuthority: req.RevokeFreezeAuthority,
		}
		rec := s.scheduler.Schedule(txErr.Signature, s.retryOpts, func(ctx context.Context) (string, error) {
			res, err := s.minter.Mint(ctx, mintReq)
			if res.MintAddress != "" {
				// The re-run created the token; record and notify exactly
				// as the original request would have.
				retryToken := &tokenResponse{
					Name:                          req.Name,
					Symbol:                        req.Symbol,
					Decimals:                      req.Decimals,
					Supply:                        req.Supply,
					CreatorWallet:                 req.CreatorWallet,
					MintAddress:                   res.MintAddress,
					CreatorTokenAccount:           res.CreatorTokenAccount,
					MintSignature:                 res.MintSignature,
					SupplySignature:               res.SupplySignature,
					AuthorityRevocationSignatures: res.AuthorityRevocationSignatures,
					Warnings:                      res.Warnings,
				}
				s.finalizeMint(ctx, req, res, retryToken, err)
			}
			return res.MintSignature, err
		})
		token.RetryID = rec.RetryID
	}

	body := map[string]interface{}{
		"success": false,
		"error":   mintErr.Error(),
	}
	if token.MintAddress != "" {
		// Token exists on chain with incomplete follow-up.
		body["token"] = token
		body["partial"] = true
	} else if token.RetryID != "" {
		body["retryId"] = token.RetryID
	}
	s.writeJSON(w, status, body)
}

// recordToken writes the durable audit record. Best-effort: a store failure
// never fails the mint that already happened.
func (s *Server) recordToken(ctx context.Context, req createTokenRequest, result *domain.MintResult, mintErr error) {
	if s.tokenStore == nil {
		return
	}

	rec := &domain.TokenRecord{
		MintAddress:         result.MintAddress,
		Name:                req.Name,
		Symbol:              req.Symbol,
		Decimals:            req.Decimals,
		Supply:              req.Supply,
		CreatorAddress:      req.CreatorWallet,
		CreatorTokenAccount: result.CreatorTokenAccount,
		MintSignature:       result.MintSignature,
		CreatedAt:           time.Now().UTC(),
	}
	for _, rs := range result.AuthorityRevocationSignatures {
		switch rs.Type {
		case domain.AuthorityMint:
			rec.MintAuthorityNone = true
		case domain.AuthorityFreeze:
			rec.FreezeAuthorityNone = true
		}
	}
	if mintErr != nil {
		rec.PartialFailure = mintErr.Error()
	}

	if err := s.tokenStore.Insert(ctx, rec); err != nil {
		s.logger.Printf("[http] record token %s: %v", rec.MintAddress, err)
	}
}

// archiveMintEvents appends the mint lifecycle to the transaction event
// archive. Best-effort, skipped when no archive is configured.
func (s *Server) archiveMintEvents(result *domain.MintResult) {
	if s.eventStore == nil {
		return
	}

	now := time.Now().UTC()
	var events []*domain.TransactionEvent
	if result.MintSignature != "" {
		events = append(events, &domain.TransactionEvent{
			Signature:  result.MintSignature,
			EventType:  "mint.created",
			Status:     string(domain.TxConfirmed),
			Detail:     result.MintAddress,
			OccurredAt: now,
		})
	}
	if result.SupplySignature != "" {
		events = append(events, &domain.TransactionEvent{
			Signature:  result.SupplySignature,
			EventType:  "mint.supply",
			Status:     string(domain.TxConfirmed),
			Detail:     result.CreatorTokenAccount,
			OccurredAt: now,
		})
	}
	for _, rs := range result.AuthorityRevocationSignatures {
		events = append(events, &domain.TransactionEvent{
			Signature:  rs.Signature,
			EventType:  "mint.revoke_" + string(rs.Type),
			Status:     string(domain.TxConfirmed),
			Detail:     result.MintAddress,
			OccurredAt: rs.Timestamp,
		})
	}
	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eventStore.InsertBulk(ctx, events); err != nil {
		s.logger.Printf("[http] archive mint events: %v", err)
	}
}

type registerWebhookRequest struct {
	URL               string                    `json:"url"`
	Addresses         []string                  `json:"addresses,omitempty"`
	NotificationTypes []domain.NotificationType `json:"notificationTypes,omitempty"`
	Filters           map[string]string         `json:"filters,omitempty"`
}

func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req registerWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	hook, err := s.registry.Register(r.Context(), webhook.RegisterInput{
		URL:               req.URL,
		Addresses:         req.Addresses,
		NotificationTypes: req.NotificationTypes,
		Filters:           req.Filters,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"webhookId": hook.WebhookID,
	})
}

type monitorRequest struct {
	Signature    string `json:"signature"`
	WebhookURL   string `json:"webhookUrl,omitempty"`
	MaxAttempts  int    `json:"maxAttempts,omitempty"`
	IntervalMs   int    `json:"intervalMs,omitempty"`
	RetryEnabled bool   `json:"retryEnabled,omitempty"`
	MaxRetries   int    `json:"maxRetries,omitempty"`
}

// handleMonitor begins background polling for an already-submitted signature.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateSignature(req.Signature); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.WebhookURL != "" {
		if _, err := s.registry.Register(r.Context(), webhook.RegisterInput{
			URL: req.WebhookURL,
			NotificationTypes: []domain.NotificationType{
				domain.NotifyTransactionStatus,
				domain.NotifyRetryUpdate,
			},
		}); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	opts := monitor.PollOptions{MaxAttempts: req.MaxAttempts}
	if req.IntervalMs > 0 {
		opts.Interval = time.Duration(req.IntervalMs) * time.Millisecond
	}
	monitoringID := s.monitor.Start(req.Signature, opts)

	body := map[string]interface{}{
		"success":      true,
		"monitoringId": monitoringID,
	}

	if req.RetryEnabled {
		// The raw transaction is not available here, so re-submission means
		// re-checking the original signature until it confirms or the
		// attempts run out.
		sig := req.Signature
		retryOpts := s.retryOpts
		if req.MaxRetries > 0 {
			retryOpts.MaxAttempts = req.MaxRetries
		}
		retryOpts.Poll = opts
		rec := s.scheduler.Schedule(sig, retryOpts, func(ctx context.Context) (string, error) {
			return sig, nil
		})
		body["retryId"] = rec.RetryID
	}

	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	signature := chi.URLParam(r, "signature")
	if err := validateSignature(signature); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client, err := s.rpcClient(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	tx, err := client.GetTransaction(r.Context(), signature)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if tx == nil {
		s.writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"signature": signature,
		"details":   tx,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	signature := chi.URLParam(r, "signature")
	if err := validateSignature(signature); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client, err := s.rpcClient(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	tx, err := client.GetTransaction(r.Context(), signature)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"signature": signature,
		"analysis":  analysis.Analyze(tx),
	})
}

// handleWebhookNotify acknowledges inbound notifications. It always returns
// 200: a failure here must never propagate back to the sender.
func (s *Server) handleWebhookNotify(w http.ResponseWriter, r *http.Request) {
	var envelope struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		s.logger.Printf("[http] webhook notify: undecodable body: %v", err)
	} else {
		s.logger.Printf("[http] webhook notify: event=%s", envelope.Event)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleGetTokenRecord(w http.ResponseWriter, r *http.Request) {
	mintAddress := chi.URLParam(r, "mintAddress")

	rec, err := s.tokenStore.GetByMint(r.Context(), mintAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   rec,
	})
}

func (s *Server) handleGetCreatorTokens(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if err := validateWalletAddress(wallet); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.tokenStore.GetByCreator(r.Context(), wallet)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tokens":  recs,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "running",
		"startedAt":     s.startedAt.Format(time.RFC3339),
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
	})
}
