package registry

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a domain record.
type Status string

// Record statuses. Only active and deleted are produced by the store;
// pending and expired are reserved for renewal flows.
const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusExpired Status = "expired"
	StatusDeleted Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusExpired, StatusDeleted:
		return true
	}
	return false
}

// TransferStatus is the outcome of an ownership transfer.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

// Action classifies a history entry.
type Action string

const (
	ActionRegistered  Action = "registered"
	ActionRenewed     Action = "renewed"
	ActionTransferred Action = "transferred"
	ActionDeleted     Action = "deleted"
	ActionDNSUpdated  Action = "dns_updated"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionRegistered, ActionRenewed, ActionTransferred, ActionDeleted, ActionDNSUpdated:
		return true
	}
	return false
}

// DomainRecord is the persisted representation of one registered name.
type DomainRecord struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	PurchaseDate    time.Time        `json:"purchaseDate"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	NftID           string           `json:"nftId"`
	IPFSHash        string           `json:"ipfsHash"`
	Status          Status           `json:"status"`
	Plan            string           `json:"plan"`
	UserDetails     json.RawMessage  `json:"userDetails,omitempty"`
	HTMLCode        string           `json:"htmlCode,omitempty"`
	CSSCode         string           `json:"cssCode,omitempty"`
	JSCode          string           `json:"jsCode,omitempty"`
	IsPublished     bool             `json:"isPublished"`
	TransferHistory []TransferRecord `json:"transferHistory,omitempty"`
	// DNSHistory is kept for layout compatibility; activity lives in the
	// shared history log.
	DNSHistory   []HistoryRecord `json:"dnsHistory,omitempty"`
	OwnerAddress string          `json:"ownerAddress,omitempty"`
	Version      int64           `json:"version"`
}

// Deleted reports whether the record has been soft-deleted.
func (d *DomainRecord) Deleted() bool {
	return d.Status == StatusDeleted
}

// CurrentOwner returns the owner address, falling back to the most recent
// transfer for records written before ownerAddress existed.
func (d *DomainRecord) CurrentOwner() string {
	if d.OwnerAddress != "" {
		return d.OwnerAddress
	}
	if n := len(d.TransferHistory); n > 0 {
		return d.TransferHistory[n-1].ToAddress
	}
	return ""
}

// TransferRecord is one completed ownership change.
type TransferRecord struct {
	ID              string         `json:"id"`
	FromAddress     string         `json:"fromAddress"`
	ToAddress       string         `json:"toAddress"`
	Timestamp       int64          `json:"timestamp"` // unix millis
	TransactionHash string         `json:"transactionHash"`
	Status          TransferStatus `json:"status"`
}

// HistoryRecord is one entry of the shared activity log.
type HistoryRecord struct {
	ID          string         `json:"id"`
	DomainName  string         `json:"domainName"`
	Action      Action         `json:"action"`
	Timestamp   int64          `json:"timestamp"` // unix millis
	Details     map[string]any `json:"details,omitempty"`
	UserAddress string         `json:"userAddress"`
}

// CodeUpdate is a partial update of a record's website source.
// Nil fields are left untouched.
type CodeUpdate struct {
	HTML *string `json:"html,omitempty"`
	CSS  *string `json:"css,omitempty"`
	JS   *string `json:"js,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u CodeUpdate) Empty() bool {
	return u.HTML == nil && u.CSS == nil && u.JS == nil
}

// HistoryFilter narrows a history read.
type HistoryFilter struct {
	Query  string // case-insensitive substring of the domain name
	Action Action // empty matches every action
	Limit  int    // 0 means no limit
}

// Stats are derived counts over the records and the history log.
type Stats struct {
	TotalDomains      int             `json:"totalDomains"`
	ActiveDomains     int             `json:"activeDomains"`
	ExpiredDomains    int             `json:"expiredDomains"`
	DeletedDomains    int             `json:"deletedDomains"`
	TotalTransactions int             `json:"totalTransactions"`
	RecentActivity    []HistoryRecord `json:"recentActivity"`
}
