// Package stub provides a scripted in-memory RPCClient for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-token-service/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Responses are scripted per method; zero values give a healthy node that
// confirms every submitted transaction on the first status check.
type RPCClient struct {
	mu sync.Mutex

	// HealthErr, when set, is returned by every GetHealth call.
	HealthErr error

	// Blockhash is returned by GetLatestBlockhash.
	Blockhash string

	// RentExempt is returned by GetMinimumBalanceForRentExemption.
	RentExempt uint64

	// SendErrs is consumed one per SendTransaction call; nil entries succeed.
	SendErrs []error

	// StatusScript maps signature to the sequence of statuses returned by
	// successive GetSignatureStatuses calls. The last entry repeats once the
	// script is exhausted. A missing signature yields nil (not found),
	// unless AutoConfirm is set.
	StatusScript map[string][]*solana.SignatureStatus

	// AutoConfirm makes unscripted signatures report confirmed immediately.
	AutoConfirm bool

	Transactions map[string]*solana.Transaction
	Accounts     map[string]*solana.AccountInfo

	// Sent records every base64 payload passed to SendTransaction.
	Sent []string

	sendSeq     int
	statusCalls map[string]int

	// HealthCalls counts GetHealth invocations.
	HealthCalls int
}

// NewRPCClient creates a new stub RPC client that confirms everything.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Blockhash:    "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		RentExempt:   1461600,
		AutoConfirm:  true,
		StatusScript: make(map[string][]*solana.SignatureStatus),
		Transactions: make(map[string]*solana.Transaction),
		Accounts:     make(map[string]*solana.AccountInfo),
		statusCalls:  make(map[string]int),
	}
}

// GetHealth returns the scripted health error, if any.
func (c *RPCClient) GetHealth(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HealthCalls++
	return c.HealthErr
}

// GetLatestBlockhash returns the scripted blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.LatestBlockhash{
		Blockhash:            c.Blockhash,
		LastValidBlockHeight: 200_000_000,
	}, nil
}

// GetMinimumBalanceForRentExemption returns the scripted rent-exempt minimum.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RentExempt, nil
}

// SendTransaction records the payload and returns a deterministic signature,
// or the next scripted error.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.SendErrs) > 0 {
		err := c.SendErrs[0]
		c.SendErrs = c.SendErrs[1:]
		if err != nil {
			return "", err
		}
	}

	c.Sent = append(c.Sent, txBase64)
	c.sendSeq++
	return fmt.Sprintf("stubsig%03d", c.sendSeq), nil
}

// GetSignatureStatuses returns scripted statuses positionally aligned with the input.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		script, ok := c.StatusScript[sig]
		if !ok {
			if c.AutoConfirm {
				statuses[i] = &solana.SignatureStatus{
					Slot:               1,
					ConfirmationStatus: solana.CommitmentConfirmed,
				}
			}
			continue
		}

		idx := c.statusCalls[sig]
		c.statusCalls[sig]++
		if idx >= len(script) {
			idx = len(script) - 1
		}
		statuses[i] = script[idx]
	}
	return statuses, nil
}

// GetTransaction retrieves a transaction from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// GetAccountInfo retrieves account info from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddAccount adds account info to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// ScriptStatuses sets the status sequence for a signature.
func (c *RPCClient) ScriptStatuses(signature string, statuses ...*solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StatusScript[signature] = statuses
}
