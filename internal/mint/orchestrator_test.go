package mint

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/monitor"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/solana/stub"
)

type stubSelector struct {
	client solana.RPCClient
}

func (s *stubSelector) Select(_ context.Context) (solana.RPCClient, string, error) {
	return s.client, "http://stub", nil
}

func newTestOrchestrator(rpc *stub.RPCClient) *Orchestrator {
	selector := &stubSelector{client: rpc}
	mon := monitor.New(monitor.Options{Selector: selector})
	return New(Options{
		Selector:  selector,
		Confirmer: mon,
		Wallet:    solanago.NewWallet().PrivateKey,
		Poll:      monitor.PollOptions{MaxAttempts: 3, Interval: time.Millisecond},
	})
}

func testRequest() *domain.MintRequest {
	return &domain.MintRequest{
		Name:           "Test",
		Symbol:         "TST",
		Decimals:       9,
		Supply:         1_000_000_000,
		CreatorAddress: solanago.NewWallet().PublicKey().String(),
	}
}

// mintAccountData builds an 82-byte mint account image with both authority
// options cleared (COption = None).
func mintAccountData(decimals uint8, supply uint64) string {
	raw := make([]byte, mintAccountSize)
	// [0:4] mint authority option = 0 (None), [4:36] authority bytes
	binary.LittleEndian.PutUint64(raw[36:44], supply)
	raw[44] = decimals
	raw[45] = 1 // initialized
	// [46:50] freeze authority option = 0 (None), [50:82] authority bytes
	return base64.StdEncoding.EncodeToString(raw)
}

func TestMint_HappyPathWithBothRevocations(t *testing.T) {
	rpc := stub.NewRPCClient()
	o := newTestOrchestrator(rpc)

	req := testRequest()
	req.RevokeMintAuthority = true
	req.RevokeFreezeAuthority = true

	result, err := o.Mint(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, result.MintAddress)
	assert.NotEmpty(t, result.CreatorTokenAccount)
	assert.NotEmpty(t, result.MintSignature)
	assert.NotEmpty(t, result.SupplySignature)

	// Exactly two revocation signatures, mint then freeze.
	require.Len(t, result.AuthorityRevocationSignatures, 2)
	assert.Equal(t, domain.AuthorityMint, result.AuthorityRevocationSignatures[0].Type)
	assert.Equal(t, domain.AuthorityFreeze, result.AuthorityRevocationSignatures[1].Type)

	// Four transactions: create, supply, revoke x2.
	assert.Len(t, rpc.Sent, 4)
}

func TestMint_NoRevocationsRequested(t *testing.T) {
	rpc := stub.NewRPCClient()
	o := newTestOrchestrator(rpc)

	result, err := o.Mint(context.Background(), testRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, result.MintAddress)
	assert.Empty(t, result.AuthorityRevocationSignatures)
	assert.Len(t, rpc.Sent, 2)
}

func TestMint_InvalidCreatorAddress(t *testing.T) {
	rpc := stub.NewRPCClient()
	o := newTestOrchestrator(rpc)

	req := testRequest()
	req.CreatorAddress = "not-a-pubkey"

	result, err := o.Mint(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, result.MintAddress)
	assert.Empty(t, rpc.Sent)
}

func TestMint_CreateFailureReturnsNoMintAddress(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErrs = []error{errors.New("node is behind")}
	o := newTestOrchestrator(rpc)

	result, err := o.Mint(context.Background(), testRequest())
	require.Error(t, err)

	// No partial token exists: the operation failed before anything landed.
	assert.Empty(t, result.MintAddress)
	assert.Empty(t, result.MintSignature)
}

func TestMint_ChainRejectionIsTransactionFailedError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AutoConfirm = false
	rpc.ScriptStatuses("stubsig001", &solana.SignatureStatus{
		Slot: 1,
		Err:  map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}},
	})
	o := newTestOrchestrator(rpc)

	result, err := o.Mint(context.Background(), testRequest())
	require.Error(t, err)

	var txErr *TransactionFailedError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "stubsig001", txErr.Signature)
	assert.Empty(t, result.MintAddress)
}

func TestMint_SupplyFailureKeepsMintAddress(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendErrs = []error{nil, errors.New("blockhash expired")}
	o := newTestOrchestrator(rpc)

	result, err := o.Mint(context.Background(), testRequest())
	require.Error(t, err)

	var supplyErr *SupplyIssuanceError
	require.ErrorAs(t, err, &supplyErr)

	// The mint exists on chain: callers must be able to reconcile it.
	assert.NotEmpty(t, result.MintAddress)
	assert.Equal(t, result.MintAddress, supplyErr.MintAddress)
	assert.NotEmpty(t, result.MintSignature)
	assert.Empty(t, result.SupplySignature)
}

func TestMint_OneRevocationFailing(t *testing.T) {
	rpc := stub.NewRPCClient()
	// create ok, supply ok, revoke mint ok, revoke freeze fails
	rpc.SendErrs = []error{nil, nil, nil, errors.New("node unavailable")}
	o := newTestOrchestrator(rpc)

	req := testRequest()
	req.RevokeMintAuthority = true
	req.RevokeFreezeAuthority = true

	result, err := o.Mint(context.Background(), req)
	require.Error(t, err)

	var revErr *RevocationError
	require.ErrorAs(t, err, &revErr)
	assert.Equal(t, domain.AuthorityFreeze, revErr.Authority)

	// The successful revocation is kept; nothing is rolled back.
	require.Len(t, result.AuthorityRevocationSignatures, 1)
	assert.Equal(t, domain.AuthorityMint, result.AuthorityRevocationSignatures[0].Type)
	assert.NotEmpty(t, result.MintAddress)
	assert.NotEmpty(t, result.SupplySignature)
}

func TestMint_VerificationConfirmsNullAuthorities(t *testing.T) {
	rpc := stub.NewRPCClient()
	o := newTestOrchestrator(rpc)

	req := testRequest()
	req.RevokeMintAuthority = true
	req.RevokeFreezeAuthority = true

	// The mint account is unreadable from the stub at verification time,
	// so the run completes with an advisory warning only.
	result, err := o.Mint(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings, "verification without account data should warn")

	// Seed the revoked on-chain state and confirm the decode path reads
	// null authorities.
	rpc.AddAccount(result.MintAddress, &solana.AccountInfo{
		Owner: solanago.TokenProgramID.String(),
		Data:  mintAccountData(req.Decimals, req.Supply),
	})

	mintPub := solanago.MustPublicKeyFromBase58(result.MintAddress)
	state, err := o.readMint(context.Background(), rpc, mintPub)
	require.NoError(t, err)
	assert.Nil(t, state.MintAuthority)
	assert.Nil(t, state.FreezeAuthority)
	assert.Equal(t, req.Decimals, state.Decimals)
}

func TestBaseUnits(t *testing.T) {
	cases := []struct {
		supply   uint64
		decimals uint8
		want     uint64
	}{
		{1, 0, 1},
		{1, 9, 1_000_000_000},
		{1_000_000_000, 9, 1_000_000_000_000_000_000},
		{18_446_744_073, 9, 18_446_744_073_000_000_000},
		{42, 2, 4200},
	}
	for _, tc := range cases {
		got, err := baseUnits(tc.supply, tc.decimals)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestBaseUnits_Overflow(t *testing.T) {
	cases := []struct {
		supply   uint64
		decimals uint8
	}{
		{20_000_000_000, 9},
		{18_446_744_074, 9},
		{math.MaxUint64, 1},
	}
	for _, tc := range cases {
		_, err := baseUnits(tc.supply, tc.decimals)
		assert.Error(t, err, "supply %d decimals %d must not wrap", tc.supply, tc.decimals)
	}
}

func TestMint_OverflowingSupplyRejected(t *testing.T) {
	rpc := stub.NewRPCClient()
	o := newTestOrchestrator(rpc)

	req := testRequest()
	req.Supply = 20_000_000_000
	req.Decimals = 9

	result, err := o.Mint(context.Background(), req)
	require.Error(t, err)

	// Rejected before anything reaches the chain.
	assert.Empty(t, result.MintAddress)
	assert.Empty(t, rpc.Sent)
}
