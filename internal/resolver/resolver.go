// Package resolver answers simulated lookups for registered domains.
package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pendergraft/decentradns/internal/registry"
	"github.com/pendergraft/decentradns/internal/validation"
)

// ErrNotResolvable is returned for names without a live record.
var ErrNotResolvable = errors.New("domain not resolvable")

// DefaultTTL is the TTL of every simulated record, in seconds.
const DefaultTTL = 300

// Lookup finds live records. registry.Lenient satisfies it.
type Lookup interface {
	Domain(ctx context.Context, name string) *registry.DomainRecord
}

// Gateway renders links for content identifiers.
type Gateway interface {
	GatewayURL(cid string) string
}

// Record is one simulated DNS record.
type Record struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	TTL   int    `json:"ttl"`
}

// Resolution is the answer for one name.
type Resolution struct {
	Domain        string    `json:"domain"`
	Resolved      bool      `json:"resolved"`
	Records       []Record  `json:"records"`
	NftID         string    `json:"nftId"`
	IPFSHash      string    `json:"ipfsHash"`
	GatewayURL    string    `json:"gatewayUrl,omitempty"`
	Owner         string    `json:"owner"`
	Published     bool      `json:"published"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ResolveTimeMs int64     `json:"resolveTime"`
	Cached        bool      `json:"cached"`
}

// Stats are counters since startup.
type Stats struct {
	TotalQueries int64   `json:"totalQueries"`
	CacheHits    int64   `json:"cacheHits"`
	Failures     int64   `json:"failures"`
	SuccessRate  float64 `json:"successRate"`
	CachedNames  int     `json:"cachedNames"`
}

// Resolver resolves names through a Lookup and caches answers.
type Resolver struct {
	lookup  Lookup
	gateway Gateway
	cache   *expirable.LRU[string, Resolution]
	now     func() time.Time

	queries  atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

// New creates a resolver caching up to size answers for ttl.
func New(lookup Lookup, gateway Gateway, size int, ttl time.Duration) *Resolver {
	if size <= 0 {
		size = 1024
	}
	return &Resolver{
		lookup:  lookup,
		gateway: gateway,
		cache:   expirable.NewLRU[string, Resolution](size, nil, ttl),
		now:     time.Now,
	}
}

// Resolve answers a lookup for name.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Resolution, error) {
	name = validation.NormalizeDomainName(name)
	start := r.now()
	r.queries.Add(1)

	if cached, ok := r.cache.Get(name); ok {
		r.hits.Add(1)
		cached.Cached = true
		cached.ResolveTimeMs = r.now().Sub(start).Milliseconds()
		return &cached, nil
	}

	d := r.lookup.Domain(ctx, name)
	if d == nil {
		r.failures.Add(1)
		return nil, ErrNotResolvable
	}

	res := Resolution{
		Domain:    d.Name,
		Resolved:  true,
		Records:   simulatedRecords(d),
		NftID:     d.NftID,
		IPFSHash:  d.IPFSHash,
		Owner:     d.CurrentOwner(),
		Published: d.IsPublished,
		ExpiresAt: d.ExpiresAt,
	}
	if d.IPFSHash != "" && r.gateway != nil {
		res.GatewayURL = r.gateway.GatewayURL(d.IPFSHash)
	}
	r.cache.Add(name, res)

	res.ResolveTimeMs = r.now().Sub(start).Milliseconds()
	return &res, nil
}

// Invalidate drops the cached answer for name.
func (r *Resolver) Invalidate(name string) {
	name = validation.NormalizeDomainName(name)
	r.cache.Remove(name)
}

// Purge drops every cached answer.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

// Stats returns query counters.
func (r *Resolver) Stats() Stats {
	st := Stats{
		TotalQueries: r.queries.Load(),
		CacheHits:    r.hits.Load(),
		Failures:     r.failures.Load(),
		CachedNames:  r.cache.Len(),
	}
	if st.TotalQueries > 0 {
		st.SuccessRate = float64(st.TotalQueries-st.Failures) / float64(st.TotalQueries)
	}
	return st
}

func simulatedRecords(d *registry.DomainRecord) []Record {
	records := []Record{
		{Type: "A", Name: "@", Value: "192.168.1.1", TTL: DefaultTTL},
		{Type: "AAAA", Name: "@", Value: "2001:db8::1", TTL: DefaultTTL},
		{Type: "CNAME", Name: "www", Value: d.Name, TTL: DefaultTTL},
	}
	if d.IsPublished && d.IPFSHash != "" {
		records = append(records, Record{Type: "TXT", Name: "_dnslink", Value: "dnslink=/ipfs/" + d.IPFSHash, TTL: DefaultTTL})
	}
	return records
}
