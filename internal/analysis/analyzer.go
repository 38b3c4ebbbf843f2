// Package analysis derives a human-readable error/warning summary from a
// fetched transaction's metadata and log messages.
package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"solana-token-service/internal/solana"
)

// Result is the derived summary for one transaction.
type Result struct {
	Successful bool     `json:"successful"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Info       []string `json:"info"`
}

var (
	// Matches: "Program log: custom program error: 0x1"
	customErrPattern = regexp.MustCompile(`custom program error: (0x[0-9a-fA-F]+)`)
	// Matches: "Program <id> consumed 199850 of 200000 compute units"
	computePattern = regexp.MustCompile(`consumed (\d+) of (\d+) compute units`)
)

// Known SPL Token custom error codes worth naming for operators.
var tokenErrorNames = map[int64]string{
	0x0: "NotRentExempt: lamport balance below rent-exempt threshold",
	0x1: "InsufficientFunds: insufficient funds for the operation",
	0x3: "OwnerMismatch: account owner does not match expected owner",
	0x5: "FixedSupply: the mint authority is revoked, supply is fixed",
	0xb: "InvalidState: account is in an invalid state for the operation",
}

// Analyze inspects the transaction meta err and log messages and classifies
// findings into errors, warnings, and info.
func Analyze(tx *solana.Transaction) *Result {
	r := &Result{
		Errors:   []string{},
		Warnings: []string{},
		Info:     []string{},
	}
	if tx == nil {
		r.Errors = append(r.Errors, "transaction not found")
		return r
	}

	r.Successful = tx.Meta == nil || tx.Meta.Err == nil
	if tx.Meta == nil {
		r.Warnings = append(r.Warnings, "transaction has no metadata; analysis is incomplete")
		return r
	}

	if tx.Meta.Err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("chain error: %v", tx.Meta.Err))
	}

	analyzeLogs(tx.Meta.LogMessages, r)

	if tx.Meta.Fee > 0 {
		r.Info = append(r.Info, fmt.Sprintf("transaction fee: %d lamports", tx.Meta.Fee))
	}
	if tx.Slot > 0 {
		r.Info = append(r.Info, fmt.Sprintf("processed in slot %d", tx.Slot))
	}

	return r
}

// analyzeLogs scans program logs for failure signatures.
func analyzeLogs(logs []string, r *Result) {
	for _, line := range logs {
		if m := customErrPattern.FindStringSubmatch(line); m != nil {
			r.Errors = append(r.Errors, describeCustomError(m[1]))
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "insufficient lamports"),
			strings.Contains(lower, "insufficient funds"):
			r.Errors = append(r.Errors, "insufficient funds: "+line)
		case strings.Contains(lower, "exceeded maximum number of instructions"),
			strings.Contains(lower, "exceeded cus meter"):
			r.Errors = append(r.Errors, "compute budget exhausted: "+line)
		case strings.Contains(lower, "blockhash not found"):
			r.Errors = append(r.Errors, "expired blockhash: transaction must be rebuilt and resubmitted")
		default:
			if m := computePattern.FindStringSubmatch(line); m != nil {
				noteComputeUsage(m[1], m[2], r)
			}
		}
	}
}

// describeCustomError resolves a custom program error code to a known name.
func describeCustomError(hexCode string) string {
	code, err := strconv.ParseInt(strings.TrimPrefix(hexCode, "0x"), 16, 64)
	if err == nil {
		if name, ok := tokenErrorNames[code]; ok {
			return fmt.Sprintf("custom program error %s (%s)", hexCode, name)
		}
	}
	return fmt.Sprintf("custom program error %s", hexCode)
}

// noteComputeUsage warns when a program came close to its compute limit.
func noteComputeUsage(usedStr, limitStr string, r *Result) {
	used, err1 := strconv.ParseInt(usedStr, 10, 64)
	limit, err2 := strconv.ParseInt(limitStr, 10, 64)
	if err1 != nil || err2 != nil || limit == 0 {
		return
	}

	if used*100 >= limit*90 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("compute usage %d of %d units (>=90%% of budget)", used, limit))
	}
}
