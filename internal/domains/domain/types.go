// Package domain contains the business logic for domain registration and
// lifecycle management.
package domain

import (
	"encoding/json"
	"time"

	"github.com/pendergraft/decentradns/internal/registry"
)

// RegisterMode selects how a registration treats an existing name.
type RegisterMode string

const (
	// ModeStrict fails when the name is held by any record.
	ModeStrict RegisterMode = "strict"
	// ModeUpsert replaces any record with the same name.
	ModeUpsert RegisterMode = "upsert"
	// ModeRestore re-registers a soft-deleted name.
	ModeRestore RegisterMode = "restore"
)

// RegisterRequest is the input for a registration.
type RegisterRequest struct {
	Name          string
	Plan          string
	DurationYears int
	AddOns        []string
	UserDetails   json.RawMessage
	Owner         string
	Mode          RegisterMode
}

// ListFilter narrows a domain listing.
type ListFilter struct {
	IncludeDeleted bool
}

// Metadata is the document pinned for every registration. Its content
// identifier becomes the record's ipfsHash.
type Metadata struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	NftID        string            `json:"nftId"`
	Plan         string            `json:"plan"`
	Owner        string            `json:"owner"`
	PurchaseDate time.Time         `json:"purchaseDate"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Domain pairs a record with its gateway link.
type Domain struct {
	registry.DomainRecord
	GatewayURL string `json:"gatewayUrl,omitempty"`
}
