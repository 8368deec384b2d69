// Package pinning derives and pins content identifiers for domain metadata.
package pinning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/pendergraft/decentradns/internal/config"
)

// ErrInvalidCID is returned for malformed content identifiers.
var ErrInvalidCID = errors.New("invalid content identifier")

// Pinner stores a JSON document and hands back its content identifier.
type Pinner interface {
	PinJSON(ctx context.Context, name string, v any) (string, error)
	Unpin(ctx context.Context, c string) error
	GatewayURL(c string) string
}

// New creates the pinner selected by configuration
func New(cfg config.PinningConfig, logger *slog.Logger) (Pinner, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalPinner(cfg.GatewayURL), nil
	case "pinata":
		if cfg.PinataKey == "" || cfg.PinataSecret == "" {
			return nil, errors.New("pinata pinning requires PINATA_API_KEY and PINATA_SECRET_KEY")
		}
		return NewPinataClient(cfg.PinataURL, cfg.PinataKey, cfg.PinataSecret,
			WithGateway(cfg.GatewayURL),
			WithMaxRetries(cfg.MaxRetries),
			WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown pinning type: %s", cfg.Type)
	}
}

// ParseCID validates s and returns it in canonical string form
func ParseCID(s string) (cid.Cid, error) {
	c, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	return c, nil
}

func gatewayURL(base, c string) string {
	return strings.TrimRight(base, "/") + "/ipfs/" + c
}
