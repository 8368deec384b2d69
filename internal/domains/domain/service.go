package domain

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/decentradns/internal/observability/metrics"
	"github.com/pendergraft/decentradns/internal/pinning"
	"github.com/pendergraft/decentradns/internal/registry"
	"github.com/pendergraft/decentradns/internal/validation"
)

// Errors returned by the domain service. Store errors are re-exported so
// callers only need this package.
var (
	ErrNotFound           = registry.ErrNotFound
	ErrAlreadyExists      = registry.ErrAlreadyExists
	ErrAlreadyDeleted     = registry.ErrAlreadyDeleted
	ErrNotDeleted         = registry.ErrNotDeleted
	ErrStorageUnavailable = registry.ErrStorageUnavailable
	ErrInvalidName        = registry.ErrInvalidName
	ErrInvalidAddress     = registry.ErrInvalidAddress
	ErrSameOwner          = registry.ErrSameOwner
	ErrInvalidRequest     = errors.New("invalid request")
)

// Store defines the record store operations needed by the domain service.
type Store interface {
	List(ctx context.Context) ([]registry.DomainRecord, error)
	ListActive(ctx context.Context) ([]registry.DomainRecord, error)
	Get(ctx context.Context, name string) (*registry.DomainRecord, error)
	Upsert(ctx context.Context, rec registry.DomainRecord) error
	Register(ctx context.Context, rec registry.DomainRecord) error
	Restore(ctx context.Context, rec registry.DomainRecord) error
	UpdateCode(ctx context.Context, name string, code registry.CodeUpdate) error
	SetPublished(ctx context.Context, name string, published bool) error
	Delete(ctx context.Context, name string) error
	Transfer(ctx context.Context, name, toAddress string) (*registry.TransferRecord, error)
	Stats(ctx context.Context) (*registry.Stats, error)
	History(ctx context.Context, filter registry.HistoryFilter) ([]registry.HistoryRecord, error)
	ClearHistory(ctx context.Context) error
}

// Invalidator drops cached state for a name after it changes.
type Invalidator interface {
	Invalidate(name string)
}

// RegisterResult is a created record and the price quoted for it.
type RegisterResult struct {
	Domain *Domain `json:"domain"`
	Quote  *Quote  `json:"quote"`
}

type service struct {
	store       Store
	pinner      pinning.Pinner
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*service)

// WithInvalidator registers a cache to invalidate on writes.
func WithInvalidator(inv Invalidator) ServiceOption {
	return func(s *service) { s.invalidator = inv }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) { s.now = now }
}

// NewService creates a new domain service.
func NewService(store Store, pinner pinning.Pinner, logger *slog.Logger, opts ...ServiceOption) *service {
	s := &service{
		store:  store,
		pinner: pinner,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a domain record, pinning its metadata first.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	name := validation.NormalizeDomainName(req.Name)
	if err := validation.ValidateDomainName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if req.Owner != "" {
		if err := validation.ValidateSuiAddress(req.Owner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
	}
	if req.Mode == "" {
		req.Mode = ModeStrict
	}

	quote, err := PriceQuote(QuoteRequest{Plan: req.Plan, DurationYears: req.DurationYears, AddOns: req.AddOns})
	if err != nil {
		return nil, err
	}

	// An upsert over a live record releases the metadata it replaces.
	var replaced *registry.DomainRecord
	if req.Mode == ModeUpsert {
		replaced, err = s.store.Get(ctx, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	now := s.now().UTC()
	rec := registry.DomainRecord{
		ID:           uuid.NewString(),
		Name:         name,
		PurchaseDate: now,
		ExpiresAt:    now.Add(time.Duration(quote.DurationYears) * 365 * 24 * time.Hour),
		NftID:        newNftID(),
		Status:       registry.StatusActive,
		Plan:         quote.Plan,
		UserDetails:  req.UserDetails,
		OwnerAddress: req.Owner,
	}

	meta := Metadata{
		Name:         rec.Name,
		Description:  "Decentralized domain " + rec.Name,
		NftID:        rec.NftID,
		Plan:         rec.Plan,
		Owner:        rec.OwnerAddress,
		PurchaseDate: rec.PurchaseDate,
		ExpiresAt:    rec.ExpiresAt,
		Attributes:   map[string]string{"durationYears": fmt.Sprint(quote.DurationYears)},
	}
	cid, err := s.pinner.PinJSON(ctx, rec.Name+".json", meta)
	metrics.PinOperation("pin", metrics.Status(err))
	if err != nil {
		return nil, fmt.Errorf("pinning metadata: %w", err)
	}
	rec.IPFSHash = cid

	switch req.Mode {
	case ModeStrict:
		err = s.store.Register(ctx, rec)
	case ModeUpsert:
		err = s.store.Upsert(ctx, rec)
	case ModeRestore:
		err = s.store.Restore(ctx, rec)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	if err != nil {
		s.unpinQuietly(ctx, cid)
		return nil, err
	}
	s.invalidate(rec.Name)
	if replaced != nil && replaced.IPFSHash != "" && replaced.IPFSHash != cid {
		s.unpinQuietly(ctx, replaced.IPFSHash)
	}

	d, err := s.Get(ctx, rec.Name)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Domain: d, Quote: quote}, nil
}

// Get returns the live record named name.
func (s *service) Get(ctx context.Context, name string) (*Domain, error) {
	name = validation.NormalizeDomainName(name)
	rec, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.toDomain(*rec), nil
}

// List returns live records, or every record when filter asks for deleted ones.
func (s *service) List(ctx context.Context, filter ListFilter) ([]Domain, error) {
	var (
		recs []registry.DomainRecord
		err  error
	)
	if filter.IncludeDeleted {
		recs, err = s.store.List(ctx)
	} else {
		recs, err = s.store.ListActive(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Domain, 0, len(recs))
	for _, r := range recs {
		out = append(out, *s.toDomain(r))
	}
	return out, nil
}

// UpdateCode applies a partial website code update.
func (s *service) UpdateCode(ctx context.Context, name string, code registry.CodeUpdate) error {
	name = validation.NormalizeDomainName(name)
	if code.Empty() {
		return fmt.Errorf("%w: no code fields given", ErrInvalidRequest)
	}
	if err := s.store.UpdateCode(ctx, name, code); err != nil {
		return err
	}
	s.invalidate(name)
	return nil
}

// SetPublished toggles publication of the website.
func (s *service) SetPublished(ctx context.Context, name string, published bool) error {
	name = validation.NormalizeDomainName(name)
	if err := s.store.SetPublished(ctx, name, published); err != nil {
		return err
	}
	s.invalidate(name)
	return nil
}

// Delete soft-deletes a record and releases its pinned metadata.
func (s *service) Delete(ctx context.Context, name string) error {
	name = validation.NormalizeDomainName(name)
	rec, err := s.store.Get(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.invalidate(name)

	if rec != nil && rec.IPFSHash != "" {
		s.unpinQuietly(ctx, rec.IPFSHash)
	}
	return nil
}

// Transfer moves a live record to a new Sui address.
func (s *service) Transfer(ctx context.Context, name, toAddress string) (*registry.TransferRecord, error) {
	name = validation.NormalizeDomainName(name)
	toAddress = strings.TrimSpace(toAddress)
	if err := validation.ValidateSuiAddress(toAddress); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	tr, err := s.store.Transfer(ctx, name, toAddress)
	if err != nil {
		return nil, err
	}
	s.invalidate(name)
	return tr, nil
}

// Stats returns aggregate counts.
func (s *service) Stats(ctx context.Context) (*registry.Stats, error) {
	return s.store.Stats(ctx)
}

// History returns the filtered activity log.
func (s *service) History(ctx context.Context, filter registry.HistoryFilter) ([]registry.HistoryRecord, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, filter.Action)
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}
	return s.store.History(ctx, filter)
}

// ClearHistory drops the activity log.
func (s *service) ClearHistory(ctx context.Context) error {
	return s.store.ClearHistory(ctx)
}

// Quote prices a registration without creating anything.
func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	return PriceQuote(req)
}

func (s *service) toDomain(rec registry.DomainRecord) *Domain {
	d := &Domain{DomainRecord: rec}
	if rec.IPFSHash != "" {
		d.GatewayURL = s.pinner.GatewayURL(rec.IPFSHash)
	}
	return d
}

func (s *service) invalidate(name string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(name)
	}
}

func (s *service) unpinQuietly(ctx context.Context, cid string) {
	err := s.pinner.Unpin(ctx, cid)
	metrics.PinOperation("unpin", metrics.Status(err))
	if err != nil {
		s.logger.Warn("unpinning metadata failed", "cid", cid, "error", err)
	}
}

const nftIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newNftID returns a mock NFT object id such as SUI_NFT_k3j9x0a1b
func newNftID() string {
	b := make([]byte, 9)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = nftIDAlphabet[int(b[i])%len(nftIDAlphabet)]
	}
	return "SUI_NFT_" + string(b)
}
