package mint

import (
	"context"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/solana"
)

// verifyRevocations re-reads the mint account and confirms the revoked
// authority fields are null. The check is advisory: the revocation
// transactions already carry signatures and are authoritative, and a
// read-after-write race can report stale authorities. Mismatches become
// warnings, never errors.
func (o *Orchestrator) verifyRevocations(ctx context.Context, client solana.RPCClient, req *domain.MintRequest, mintPub solanago.PublicKey, result *domain.MintResult) {
	// Only verify authorities whose revocation transaction succeeded.
	revoked := make(map[domain.AuthorityType]bool)
	for _, rs := range result.AuthorityRevocationSignatures {
		revoked[rs.Type] = true
	}
	if len(revoked) == 0 {
		return
	}

	state, err := o.readMint(ctx, client, mintPub)
	if err != nil {
		warning := fmt.Sprintf("revocation verification skipped: %v", err)
		o.logger.Printf("[mint] %s: %s", mintPub, warning)
		result.Warnings = append(result.Warnings, warning)
		return
	}

	if revoked[domain.AuthorityMint] && state.MintAuthority != nil {
		warning := "mint authority still set after revocation; verification may have raced the write"
		o.logger.Printf("[mint] %s: %s", mintPub, warning)
		result.Warnings = append(result.Warnings, warning)
	}
	if revoked[domain.AuthorityFreeze] && state.FreezeAuthority != nil {
		warning := "freeze authority still set after revocation; verification may have raced the write"
		o.logger.Printf("[mint] %s: %s", mintPub, warning)
		result.Warnings = append(result.Warnings, warning)
	}
}

// readMint fetches and decodes the on-chain mint account state.
func (o *Orchestrator) readMint(ctx context.Context, client solana.RPCClient, mintPub solanago.PublicKey) (*token.Mint, error) {
	info, err := client.GetAccountInfo(ctx, mintPub.String())
	if err != nil {
		return nil, fmt.Errorf("read mint account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("mint account %s not found", mintPub)
	}

	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode mint account data: %w", err)
	}

	var state token.Mint
	if err := bin.NewBinDecoder(raw).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode mint state: %w", err)
	}
	return &state, nil
}
