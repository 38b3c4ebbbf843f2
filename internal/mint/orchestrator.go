// Package mint executes the multi-step token creation sequence: create the
// mint account, issue initial supply, optionally revoke authorities, then
// verify. Steps are strictly sequential; partial results are always returned
// so callers can reconcile already-committed on-chain work.
package mint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/solana"
)

// mintAccountSize is the byte size of an SPL Token mint account.
const mintAccountSize = 82

// Confirmer waits for a submitted signature to resolve. Satisfied by
// monitor.Monitor.
type Confirmer interface {
	Poll(ctx context.Context, signature string, opts monitor.PollOptions) (*domain.TransactionRecord, error)
}

// Orchestrator runs mint requests against a freshly selected endpoint.
type Orchestrator struct {
	selector  monitor.ClientSelector
	confirmer Confirmer
	wallet    solanago.PrivateKey
	poll      monitor.PollOptions
	logger    *log.Logger
}

// Options configures an Orchestrator.
type Options struct {
	Selector monitor.ClientSelector
	// Confirmer waits for each step's transaction before the next starts.
	Confirmer Confirmer
	// Wallet is the service signing key; it funds accounts and holds both
	// authorities at creation time.
	Wallet solanago.PrivateKey
	// Poll bounds the per-step confirmation wait.
	Poll   monitor.PollOptions
	Logger *log.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		selector:  opts.Selector,
		confirmer: opts.Confirmer,
		wallet:    opts.Wallet,
		poll:      opts.Poll,
		logger:    logger,
	}
}

// Mint executes the state machine over one request. On failure at any step
// it returns the partial result carrying whichever signatures were produced
// so far alongside the error; committed on-chain work is never dropped.
func (o *Orchestrator) Mint(ctx context.Context, req *domain.MintRequest) (*domain.MintResult, error) {
	result := &domain.MintResult{}

	creator, err := solanago.PublicKeyFromBase58(req.CreatorAddress)
	if err != nil {
		observability.RecordMintOperation("invalid_request")
		return result, fmt.Errorf("invalid creator address: %w", err)
	}

	amount, err := baseUnits(req.Supply, req.Decimals)
	if err != nil {
		observability.RecordMintOperation("invalid_request")
		return result, err
	}

	client, _, err := o.selector.Select(ctx)
	if err != nil {
		observability.RecordMintOperation("no_endpoint")
		return result, err
	}

	mintKey, err := o.createMint(ctx, client, req, result)
	if err != nil {
		observability.RecordMintOperation("mint_creation_failed")
		return result, err
	}

	if err := o.issueSupply(ctx, client, req, creator, mintKey.PublicKey(), amount, result); err != nil {
		observability.RecordMintOperation("supply_failed")
		return result, &SupplyIssuanceError{MintAddress: result.MintAddress, Err: err}
	}

	revocationErrs := o.revokeAuthorities(ctx, client, req, mintKey.PublicKey(), result)

	if req.RevokeMintAuthority || req.RevokeFreezeAuthority {
		o.verifyRevocations(ctx, client, req, mintKey.PublicKey(), result)
	}

	if len(revocationErrs) > 0 {
		observability.RecordMintOperation("partial")
		return result, errors.Join(revocationErrs...)
	}

	observability.RecordMintOperation("success")
	return result, nil
}

// createMint allocates the mint account and initializes it with the service
// wallet as both mint and freeze authority. Failure leaves no mint address
// in the result: nothing exists on chain to clean up.
func (o *Orchestrator) createMint(ctx context.Context, client solana.RPCClient, req *domain.MintRequest, result *domain.MintResult) (*solanago.Wallet, error) {
	started := time.Now()
	defer func() { observability.RecordMintStep("create_mint", time.Since(started).Seconds()) }()

	mintKey := solanago.NewWallet()

	rent, err := client.GetMinimumBalanceForRentExemption(ctx, mintAccountSize)
	if err != nil {
		return nil, fmt.Errorf("rent exemption: %w", err)
	}

	createIx, err := system.NewCreateAccountInstructionBuilder().
		SetLamports(rent).
		SetSpace(mintAccountSize).
		SetOwner(solanago.TokenProgramID).
		SetFundingAccount(o.wallet.PublicKey()).
		SetNewAccount(mintKey.PublicKey()).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build create account instruction: %w", err)
	}

	initIx, err := token.NewInitializeMintInstructionBuilder().
		SetDecimals(req.Decimals).
		SetMintAuthority(o.wallet.PublicKey()).
		SetFreezeAuthority(o.wallet.PublicKey()).
		SetMintAccount(mintKey.PublicKey()).
		SetSysVarRentPubkeyAccount(solanago.SysVarRentPubkey).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build initialize mint instruction: %w", err)
	}

	sig, err := o.sendAndConfirm(ctx, client, []solanago.Instruction{createIx, initIx}, mintKey)
	if err != nil {
		return nil, err
	}

	result.MintAddress = mintKey.PublicKey().String()
	result.MintSignature = sig
	o.logger.Printf("[mint] created mint %s (%s)", result.MintAddress, sig)
	return mintKey, nil
}

// issueSupply creates the creator's associated token account when missing
// and mints supply x 10^decimals base units into it.
func (o *Orchestrator) issueSupply(ctx context.Context, client solana.RPCClient, req *domain.MintRequest, creator, mintPub solanago.PublicKey, amount uint64, result *domain.MintResult) error {
	started := time.Now()
	defer func() { observability.RecordMintStep("issue_supply", time.Since(started).Seconds()) }()

	ata, _, err := solanago.FindAssociatedTokenAddress(creator, mintPub)
	if err != nil {
		return fmt.Errorf("derive associated token account: %w", err)
	}

	var instructions []solanago.Instruction

	existing, err := client.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return fmt.Errorf("check token account: %w", err)
	}
	if existing == nil {
		ataIx, err := associatedtokenaccount.NewCreateInstruction(
			o.wallet.PublicKey(), creator, mintPub,
		).ValidateAndBuild()
		if err != nil {
			return fmt.Errorf("build token account instruction: %w", err)
		}
		instructions = append(instructions, ataIx)
	}

	mintToIx, err := token.NewMintToInstructionBuilder().
		SetAmount(amount).
		SetMintAccount(mintPub).
		SetDestinationAccount(ata).
		SetAuthorityAccount(o.wallet.PublicKey()).
		ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build mint-to instruction: %w", err)
	}
	instructions = append(instructions, mintToIx)

	sig, err := o.sendAndConfirm(ctx, client, instructions, nil)
	if err != nil {
		return err
	}

	result.CreatorTokenAccount = ata.String()
	result.SupplySignature = sig
	o.logger.Printf("[mint] issued %d units of %s to %s (%s)", req.Supply, mintPub, ata, sig)
	return nil
}

// revokeAuthorities sets each requested authority to none, one transaction
// per authority. One failing never rolls back the other or the supply;
// successful signatures are accumulated on the result.
func (o *Orchestrator) revokeAuthorities(ctx context.Context, client solana.RPCClient, req *domain.MintRequest, mintPub solanago.PublicKey, result *domain.MintResult) []error {
	type revocation struct {
		requested bool
		authority domain.AuthorityType
		tokenType token.AuthorityType
	}
	revocations := []revocation{
		{req.RevokeMintAuthority, domain.AuthorityMint, token.AuthorityMintTokens},
		{req.RevokeFreezeAuthority, domain.AuthorityFreeze, token.AuthorityFreezeAccount},
	}

	var errs []error
	for _, rv := range revocations {
		if !rv.requested {
			continue
		}

		sig, err := o.revoke(ctx, client, mintPub, rv.tokenType)
		if err != nil {
			observability.RecordRevocation(string(rv.authority), "failure")
			o.logger.Printf("[mint] revoke %s authority on %s: %v", rv.authority, mintPub, err)
			errs = append(errs, &RevocationError{Authority: rv.authority, Err: err})
			continue
		}

		observability.RecordRevocation(string(rv.authority), "success")
		result.AuthorityRevocationSignatures = append(result.AuthorityRevocationSignatures, domain.RevocationSignature{
			Type:      rv.authority,
			Signature: sig,
			Timestamp: time.Now().UTC(),
		})
	}
	return errs
}

// revoke builds and submits one SetAuthority transaction. Leaving the new
// authority unset makes the revocation irrevocable.
func (o *Orchestrator) revoke(ctx context.Context, client solana.RPCClient, mintPub solanago.PublicKey, authority token.AuthorityType) (string, error) {
	started := time.Now()
	defer func() { observability.RecordMintStep("revoke_authority", time.Since(started).Seconds()) }()

	ix, err := token.NewSetAuthorityInstructionBuilder().
		SetAuthorityType(authority).
		SetSubjectAccount(mintPub).
		SetAuthorityAccount(o.wallet.PublicKey()).
		ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("build set-authority instruction: %w", err)
	}

	return o.sendAndConfirm(ctx, client, []solanago.Instruction{ix}, nil)
}

// sendAndConfirm assembles, signs, submits, and waits for one transaction.
// extraSigner, when non-nil, co-signs alongside the service wallet.
func (o *Orchestrator) sendAndConfirm(ctx context.Context, client solana.RPCClient, instructions []solanago.Instruction, extraSigner *solanago.Wallet) (string, error) {
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	hash, err := solanago.HashFromBase58(blockhash.Blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	builder := solanago.NewTransactionBuilder().
		SetRecentBlockHash(hash).
		SetFeePayer(o.wallet.PublicKey())
	for _, ix := range instructions {
		builder = builder.AddInstruction(ix)
	}

	tx, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(o.wallet.PublicKey()) {
			return &o.wallet
		}
		if extraSigner != nil && key.Equals(extraSigner.PublicKey()) {
			return &extraSigner.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := client.SendTransaction(ctx, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	rec, err := o.confirmer.Poll(ctx, sig, o.poll)
	if err != nil {
		return sig, fmt.Errorf("confirm %s: %w", sig, err)
	}
	switch rec.Status {
	case domain.TxConfirmed:
		return sig, nil
	case domain.TxFailed:
		return sig, &TransactionFailedError{Signature: sig, ChainErr: rec.ChainError}
	default:
		return sig, &TransactionFailedError{Signature: sig, ChainErr: "confirmation timed out"}
	}
}

// baseUnits converts a UI supply into base units. Minted amounts are
// irreversible once the mint authority is revoked, so a supply that does not
// fit in 64 bits must fail here rather than wrap.
func baseUnits(supply uint64, decimals uint8) (uint64, error) {
	units := supply
	for i := uint8(0); i < decimals; i++ {
		if units > math.MaxUint64/10 {
			return 0, fmt.Errorf("supply %d with %d decimals exceeds the 64-bit base unit limit", supply, decimals)
		}
		units *= 10
	}
	return units, nil
}
