package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the service.
type RPCClient interface {
	// GetHealth performs a lightweight liveness call against the endpoint.
	GetHealth(ctx context.Context) error

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum
	// for an account of dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)

	// SendTransaction submits a base64-encoded signed transaction and returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation statuses for the given signatures.
	// The result slice is positionally aligned with the input; nil means status not found.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetTransaction retrieves a transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}
