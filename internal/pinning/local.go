package pinning

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocalPinner derives CIDv1 identifiers (raw codec, sha2-256) without any
// network access and remembers what it pinned.
type LocalPinner struct {
	gateway string

	mu     sync.Mutex
	pinned map[string]string // cid -> name
}

// NewLocalPinner creates a local pinner that renders gateway links under gateway
func NewLocalPinner(gateway string) *LocalPinner {
	return &LocalPinner{gateway: gateway, pinned: make(map[string]string)}
}

// PinJSON encodes v and returns the CID of the encoding
func (p *LocalPinner) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	c, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.pinned[c] = name
	p.mu.Unlock()
	return c, nil
}

// Unpin forgets c. Unknown identifiers are ignored.
func (p *LocalPinner) Unpin(ctx context.Context, c string) error {
	if _, err := ParseCID(c); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.pinned, c)
	p.mu.Unlock()
	return nil
}

// Pinned reports whether c is currently pinned
func (p *LocalPinner) Pinned(c string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pinned[c]
	return ok
}

// GatewayURL returns the public gateway link for c
func (p *LocalPinner) GatewayURL(c string) string {
	return gatewayURL(p.gateway, c)
}

// ComputeCID returns the CIDv1 of data using the raw codec and sha2-256
func ComputeCID(data []byte) (string, error) {
	hash, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, hash).String(), nil
}
