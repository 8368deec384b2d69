// Package transport provides HTTP request/response types for the domains API.
package transport

import (
	"encoding/json"

	"github.com/pendergraft/decentradns/internal/domains/domain"
	"github.com/pendergraft/decentradns/internal/registry"
)

// RegisterRequest is the HTTP request body for registering a domain.
type RegisterRequest struct {
	Name          string          `json:"name"`
	Plan          string          `json:"plan,omitempty"`
	DurationYears int             `json:"durationYears,omitempty"`
	AddOns        []string        `json:"addOns,omitempty"`
	UserDetails   json.RawMessage `json:"userDetails,omitempty"`
	OwnerAddress  string          `json:"ownerAddress,omitempty"`
	Mode          string          `json:"mode,omitempty"`
}

// ToDomain converts RegisterRequest to domain.RegisterRequest.
func (r RegisterRequest) ToDomain() domain.RegisterRequest {
	return domain.RegisterRequest{
		Name:          r.Name,
		Plan:          r.Plan,
		DurationYears: r.DurationYears,
		AddOns:        r.AddOns,
		UserDetails:   r.UserDetails,
		Owner:         r.OwnerAddress,
		Mode:          domain.RegisterMode(r.Mode),
	}
}

// CodeRequest is a partial website code update. Omitted fields are kept.
type CodeRequest struct {
	HTML *string `json:"html,omitempty"`
	CSS  *string `json:"css,omitempty"`
	JS   *string `json:"js,omitempty"`
}

// ToDomain converts CodeRequest to registry.CodeUpdate.
func (r CodeRequest) ToDomain() registry.CodeUpdate {
	return registry.CodeUpdate{HTML: r.HTML, CSS: r.CSS, JS: r.JS}
}

// PublishRequest sets the publish flag.
type PublishRequest struct {
	IsPublished *bool `json:"isPublished"`
}

// TransferRequest moves a domain to a new owner.
type TransferRequest struct {
	ToAddress string `json:"toAddress"`
}

// ListResponse wraps a domain listing.
type ListResponse struct {
	Data  []domain.Domain `json:"data"`
	Total int             `json:"total"`
}

// HistoryResponse wraps a history listing.
type HistoryResponse struct {
	Data  []registry.HistoryRecord `json:"data"`
	Total int                      `json:"total"`
}
