package client

import (
	"encoding/json"
	"time"
)

// Domain is a registered domain record
type Domain struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	PurchaseDate    time.Time        `json:"purchaseDate"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	NftID           string           `json:"nftId"`
	IPFSHash        string           `json:"ipfsHash"`
	Status          string           `json:"status"`
	Plan            string           `json:"plan"`
	UserDetails     json.RawMessage  `json:"userDetails,omitempty"`
	HTMLCode        string           `json:"htmlCode,omitempty"`
	CSSCode         string           `json:"cssCode,omitempty"`
	JSCode          string           `json:"jsCode,omitempty"`
	IsPublished     bool             `json:"isPublished"`
	TransferHistory []TransferRecord `json:"transferHistory"`
	OwnerAddress    string           `json:"ownerAddress,omitempty"`
	Version         int64            `json:"version"`
	GatewayURL      string           `json:"gatewayUrl,omitempty"`
}

// TransferRecord is one completed ownership change
type TransferRecord struct {
	ID              string `json:"id"`
	FromAddress     string `json:"fromAddress"`
	ToAddress       string `json:"toAddress"`
	Timestamp       int64  `json:"timestamp"`
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
}

// HistoryRecord is one activity log entry
type HistoryRecord struct {
	ID          string         `json:"id"`
	DomainName  string         `json:"domainName"`
	Action      string         `json:"action"`
	Timestamp   int64          `json:"timestamp"`
	Details     map[string]any `json:"details"`
	UserAddress string         `json:"userAddress"`
}

// Time returns the entry timestamp.
func (h HistoryRecord) Time() time.Time {
	return time.UnixMilli(h.Timestamp)
}

// HistoryQuery filters a history listing
type HistoryQuery struct {
	Query  string
	Action string
	Limit  int
}

// Stats are aggregate counts over the store
type Stats struct {
	TotalDomains      int             `json:"totalDomains"`
	ActiveDomains     int             `json:"activeDomains"`
	ExpiredDomains    int             `json:"expiredDomains"`
	DeletedDomains    int             `json:"deletedDomains"`
	TotalTransactions int             `json:"totalTransactions"`
	RecentActivity    []HistoryRecord `json:"recentActivity"`
}

// RegisterRequest is the request for registering a domain
type RegisterRequest struct {
	Name          string          `json:"name"`
	Plan          string          `json:"plan,omitempty"`
	DurationYears int             `json:"durationYears,omitempty"`
	AddOns        []string        `json:"addOns,omitempty"`
	UserDetails   json.RawMessage `json:"userDetails,omitempty"`
	OwnerAddress  string          `json:"ownerAddress,omitempty"`
	Mode          string          `json:"mode,omitempty"` // "strict", "upsert" or "restore"
}

// RegisterResult is returned by Register
type RegisterResult struct {
	Domain Domain `json:"domain"`
	Quote  Quote  `json:"quote"`
}

// CodeUpdate replaces the non-nil website code fields
type CodeUpdate struct {
	HTML *string `json:"html,omitempty"`
	CSS  *string `json:"css,omitempty"`
	JS   *string `json:"js,omitempty"`
}

// QuoteRequest prices a registration
type QuoteRequest struct {
	Plan          string   `json:"plan"`
	DurationYears int      `json:"durationYears"`
	AddOns        []string `json:"addOns,omitempty"`
}

// Quote is a price breakdown in MIST (1 SUI = 1e9 MIST)
type Quote struct {
	Plan            string   `json:"plan"`
	DurationYears   int      `json:"durationYears"`
	AddOns          []string `json:"addOns,omitempty"`
	PlanTotal       int64    `json:"planTotal"`
	Discount        int64    `json:"discount"`
	AddOnTotal      int64    `json:"addOnTotal"`
	RegistrationFee int64    `json:"registrationFee"`
	GasFee          int64    `json:"gasFee"`
	PlatformFee     int64    `json:"platformFee"`
	Total           int64    `json:"total"`
	TotalSUI        string   `json:"totalSui"`
}

// Record is one simulated DNS record
type Record struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	TTL   int    `json:"ttl"`
}

// Resolution is the result of a simulated lookup
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
