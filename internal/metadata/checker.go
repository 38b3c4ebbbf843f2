// Package metadata verifies that off-chain metadata references are
// content-addressed and retrievable from at least one mirror gateway.
// The check is advisory: it reports, it never blocks.
package metadata

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/observability"
)

// ReasonNotContentAddressed is the fixed rejection reason for URIs that are
// not recognized as content-addressed. No network call is made for these.
const ReasonNotContentAddressed = "Not a recognized content-addressed URI"

// DefaultProbeTimeout bounds one gateway existence check.
const DefaultProbeTimeout = 5 * time.Second

// Default mirror gateways, probed in order.
var (
	DefaultIPFSGateways = []string{
		"https://ipfs.io/ipfs/",
		"https://cloudflare-ipfs.com/ipfs/",
		"https://gateway.pinata.cloud/ipfs/",
	}
	DefaultArweaveGateways = []string{
		"https://arweave.net/",
		"https://ar-io.net/",
	}
)

// CIDv1 is base32 lowercase starting with "b"; Arweave tx ids are 43
// base64url characters.
var (
	cidV1Pattern     = regexp.MustCompile(`^b[a-z2-7]{20,}$`)
	arweaveIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)
)

// Checker probes mirror gateways for content-addressed URIs.
type Checker struct {
	ipfsGateways    []string
	arweaveGateways []string
	client          *http.Client
	logger          *log.Logger
}

// Options configures a Checker.
type Options struct {
	// IPFSGateways and ArweaveGateways override the defaults (tests).
	IPFSGateways    []string
	ArweaveGateways []string
	// Timeout bounds each gateway probe; defaults to DefaultProbeTimeout.
	Timeout time.Duration
	// HTTPClient overrides the probe client.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// New creates a Checker.
func New(opts Options) *Checker {
	ipfsGateways := opts.IPFSGateways
	if len(ipfsGateways) == 0 {
		ipfsGateways = DefaultIPFSGateways
	}
	arweaveGateways := opts.ArweaveGateways
	if len(arweaveGateways) == 0 {
		arweaveGateways = DefaultArweaveGateways
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{
		ipfsGateways:    ipfsGateways,
		arweaveGateways: arweaveGateways,
		client:          client,
		logger:          logger,
	}
}

// Validate classifies the URI and probes the matching gateway list in order.
// First success wins; all gateways are tried before declaring invalid.
func (c *Checker) Validate(ctx context.Context, uri string) *domain.MetadataValidation {
	contentID, gateways, ok := c.resolve(uri)
	if !ok {
		observability.RecordMetadataCheck("rejected")
		return &domain.MetadataValidation{
			URI:    uri,
			Valid:  false,
			Reason: ReasonNotContentAddressed,
		}
	}

	result := &domain.MetadataValidation{URI: uri}
	for _, gw := range gateways {
		target := gw + contentID
		result.CheckedGateways = append(result.CheckedGateways, gw)

		if c.probe(ctx, target) {
			result.Valid = true
			result.AccessibleVia = target
			observability.RecordMetadataCheck("accessible")
			return result
		}
	}

	observability.RecordMetadataCheck("inaccessible")
	result.Reason = "Metadata not retrievable from any gateway"
	return result
}

// resolve extracts the content identifier and picks the gateway list.
func (c *Checker) resolve(uri string) (contentID string, gateways []string, ok bool) {
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		cid := strings.TrimPrefix(uri, "ipfs://")
		cid = strings.TrimPrefix(cid, "ipfs/") // ipfs://ipfs/CID form
		if isCID(cid) {
			return cid, c.ipfsGateways, true
		}
	case strings.HasPrefix(uri, "ar://"):
		id := strings.TrimPrefix(uri, "ar://")
		if arweaveIDPattern.MatchString(id) {
			return id, c.arweaveGateways, true
		}
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if cid := cidFromGatewayURL(uri); cid != "" {
			return cid, c.ipfsGateways, true
		}
	default:
		if isCID(uri) {
			return uri, c.ipfsGateways, true
		}
	}
	return "", nil, false
}

// probe performs a lightweight HEAD existence check.
func (c *Checker) probe(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Printf("[metadata] probe %s: %v", target, err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// isCID recognizes CIDv0 (base58, 34 bytes, sha2-256 multihash prefix
// 0x12 0x20) and CIDv1 (base32 lowercase).
func isCID(s string) bool {
	if cidV1Pattern.MatchString(s) {
		return true
	}
	if !strings.HasPrefix(s, "Qm") {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 34 && decoded[0] == 0x12 && decoded[1] == 0x20
}

// cidFromGatewayURL extracts a CID from a known gateway path like
// https://gateway/ipfs/CID or https://CID.ipfs.gateway/.
func cidFromGatewayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "ipfs" && i+1 < len(parts) && isCID(parts[i+1]) {
			return parts[i+1]
		}
	}

	// Subdomain form: <cid>.ipfs.<gateway>
	host := strings.Split(u.Hostname(), ".")
	if len(host) > 2 && host[1] == "ipfs" && isCID(host[0]) {
		return host[0]
	}

	return ""
}
