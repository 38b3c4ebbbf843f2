package httpapi

import (
	"fmt"
	"math"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	maxDecimals     = 9
	maxNameLength   = 32
	maxSymbolLength = 10
)

// validateCreateToken checks the mint request fields before any chain work.
func validateCreateToken(req *createTokenRequest) error {
	if req.Name == "" || len(req.Name) > maxNameLength {
		return fmt.Errorf("name must be 1-%d characters", maxNameLength)
	}
	if req.Symbol == "" || len(req.Symbol) > maxSymbolLength {
		return fmt.Errorf("symbol must be 1-%d characters", maxSymbolLength)
	}
	if req.Decimals > maxDecimals {
		return fmt.Errorf("decimals must be 0-%d", maxDecimals)
	}
	if req.Supply == 0 {
		return fmt.Errorf("supply must be greater than zero")
	}
	if limit := maxSupply(req.Decimals); req.Supply > limit {
		return fmt.Errorf("supply must be at most %d for %d decimals", limit, req.Decimals)
	}
	if err := validateWalletAddress(req.CreatorWallet); err != nil {
		return fmt.Errorf("creatorWallet: %w", err)
	}
	return nil
}

// maxSupply is the largest UI supply whose base unit amount
// (supply x 10^decimals) still fits in 64 bits. Anything larger would wrap
// and mint the wrong amount on chain.
func maxSupply(decimals uint8) uint64 {
	limit := uint64(math.MaxUint64)
	for i := uint8(0); i < decimals; i++ {
		limit /= 10
	}
	return limit
}

// validateWalletAddress checks that the address is a base58-encoded 32-byte
// ed25519 point on the curve. Token accounts are derived off-curve, so an
// off-curve creator indicates a derived address passed where a wallet belongs.
func validateWalletAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("not valid base58: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("decoded address must be 32 bytes, got %d", len(decoded))
	}
	if !isOnCurve(decoded) {
		return fmt.Errorf("address is not an ed25519 wallet key")
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// validateSignature checks the shape of a transaction signature (base58,
// 64 bytes).
func validateSignature(sig string) error {
	if sig == "" {
		return fmt.Errorf("signature is required")
	}
	decoded, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("not valid base58: %w", err)
	}
	if len(decoded) != 64 {
		return fmt.Errorf("decoded signature must be 64 bytes, got %d", len(decoded))
	}
	return nil
}
