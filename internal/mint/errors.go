package mint

import (
	"fmt"

	"solana-token-service/internal/domain"
)

// TransactionFailedError reports a transaction the chain itself rejected.
// Eligible for retry scheduler enrollment when the caller opted in.
type TransactionFailedError struct {
	Signature string
	ChainErr  interface{}
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %v", e.Signature, e.ChainErr)
}

// SupplyIssuanceError reports a mint that was created but never supplied.
// The mint address is carried so operators can reconcile on-chain state;
// the chain offers no way to destroy the mint.
type SupplyIssuanceError struct {
	MintAddress string
	Err         error
}

func (e *SupplyIssuanceError) Error() string {
	return fmt.Sprintf("mint %s created but supply issuance failed: %v", e.MintAddress, e.Err)
}

func (e *SupplyIssuanceError) Unwrap() error {
	return e.Err
}

// RevocationError reports a failed authority revocation. Fatal for that
// authority only; prior successful steps stay intact.
type RevocationError struct {
	Authority domain.AuthorityType
	Err       error
}

func (e *RevocationError) Error() string {
	return fmt.Sprintf("revoke %s authority: %v", e.Authority, e.Err)
}

func (e *RevocationError) Unwrap() error {
	return e.Err
}
