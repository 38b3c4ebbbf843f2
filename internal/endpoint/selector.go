// Package endpoint selects a live RPC endpoint from a ranked candidate list.
package endpoint

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/solana"
)

// ErrAllEndpointsUnreachable is returned when every candidate, including the
// configured override, fails the liveness probe. This is fatal for the
// calling operation: no endpoint means no further work is possible.
var ErrAllEndpointsUnreachable = errors.New("all RPC endpoints unreachable")

// DefaultProbeTimeout bounds a single liveness probe.
const DefaultProbeTimeout = 10 * time.Second

// ClientFactory builds an RPC client for a candidate URL.
type ClientFactory func(url string) solana.RPCClient

// Selector probes ranked candidates in priority order and returns the first
// endpoint that answers a liveness call. Probing is strictly sequential with
// early exit on first success; mutating calls must never fan out to two
// endpoints concurrently.
type Selector struct {
	candidates   []*domain.RPCEndpoint
	override     string
	factory      ClientFactory
	probeTimeout time.Duration
	logger       *log.Logger
}

// Options for creating a Selector.
type Options struct {
	// Candidates is the ranked endpoint list, highest priority first.
	Candidates []string
	// Override, when non-empty, is tried before the candidates.
	Override string
	// Factory builds clients; defaults to solana.NewHTTPClient.
	Factory ClientFactory
	// ProbeTimeout bounds each liveness call; defaults to DefaultProbeTimeout.
	ProbeTimeout time.Duration
	Logger       *log.Logger
}

// New creates a Selector.
func New(opts Options) *Selector {
	factory := opts.Factory
	if factory == nil {
		factory = func(u string) solana.RPCClient {
			return solana.NewHTTPClient(u)
		}
	}

	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	candidates := make([]*domain.RPCEndpoint, 0, len(opts.Candidates))
	for i, u := range opts.Candidates {
		candidates = append(candidates, &domain.RPCEndpoint{URL: u, Priority: i})
	}

	return &Selector{
		candidates:   candidates,
		override:     opts.Override,
		factory:      factory,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Select returns a client connected to the first live endpoint plus the URL
// it used. The override is tried first; every probe failure moves on to the
// next candidate without delay.
func (s *Selector) Select(ctx context.Context) (solana.RPCClient, string, error) {
	urls := make([]string, 0, len(s.candidates)+1)
	if s.override != "" {
		urls = append(urls, s.override)
	}
	for _, c := range s.candidates {
		urls = append(urls, c.URL)
	}

	for i, u := range urls {
		client, err := s.probe(ctx, u)
		if err != nil {
			observability.RecordEndpointProbe("failure")
			s.logger.Printf("[endpoint] probe failed for %s: %v", Redact(u), err)
			continue
		}

		observability.RecordEndpointProbe("success")
		if i > 0 {
			observability.RecordFailover()
		}
		s.markGood(u)
		s.logger.Printf("[endpoint] using %s", Redact(u))
		return client, u, nil
	}

	return nil, "", ErrAllEndpointsUnreachable
}

// probe opens a connection and performs a liveness call.
func (s *Selector) probe(ctx context.Context, url string) (solana.RPCClient, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	client := s.factory(url)
	if err := client.GetHealth(probeCtx); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *Selector) markGood(url string) {
	now := time.Now()
	for _, c := range s.candidates {
		if c.URL == url {
			c.LastKnownGood = &now
			return
		}
	}
}

// Redact strips credentials from an endpoint URL for logging: userinfo and
// the values of common api-key query parameters.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable endpoint>"
	}

	if u.User != nil {
		u.User = url.User("REDACTED")
	}

	q := u.Query()
	for key := range q {
		switch key {
		case "api-key", "apikey", "apiKey", "token", "key":
			q.Set(key, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}
