package domain

import "time"

// AuthorityType identifies a revocable mint authority.
type AuthorityType string

const (
	AuthorityMint   AuthorityType = "mint"
	AuthorityFreeze AuthorityType = "freeze"
)

// MintRequest describes a single token creation request.
// It is consumed once by the orchestrator and never mutated after submission.
type MintRequest struct {
	Name                  string
	Symbol                string
	Decimals              uint8
	Supply                uint64
	CreatorAddress        string
	MetadataURI           string
	RevokeMintAuthority   bool
	RevokeFreezeAuthority bool
}

// RevocationSignature records one successful authority revocation.
type RevocationSignature struct {
	Type      AuthorityType `json:"type"`
	Signature string        `json:"signature"`
	Timestamp time.Time     `json:"timestamp"`
}

// MintResult is the immutable outcome of a mint operation.
// On partial failure it carries whichever signatures were produced so far,
// so callers can reconcile on-chain state.
type MintResult struct {
	MintAddress                   string                `json:"mintAddress,omitempty"`
	CreatorTokenAccount           string                `json:"creatorTokenAccount,omitempty"`
	MintSignature                 string                `json:"mintSignature,omitempty"`
	SupplySignature               string                `json:"supplySignature,omitempty"`
	AuthorityRevocationSignatures []RevocationSignature `json:"authorityRevocationSignatures,omitempty"`
	Warnings                      []string              `json:"warnings,omitempty"`
}
