// Package registry implements the domain record store: a persisted
// collection of domain records and a bounded, newest-first activity log.
//
// Every mutation is a read-modify-write of a whole collection, so the
// store serializes writers with a single mutex. One Store must own a
// backend per process.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/decentradns/internal/config"
	"github.com/pendergraft/decentradns/internal/storage"
)

// DefaultHistoryLimit is the number of history entries retained.
const DefaultHistoryLimit = 100

// RecentActivitySize is the number of entries reported by Stats.
const RecentActivitySize = 10

// HistoryHook is called with every history entry after it is persisted.
// Hooks run under the store lock in log order and must not block or call
// back into the store.
type HistoryHook func(ctx context.Context, rec HistoryRecord)

// Store is the domain record store.
type Store struct {
	backend      storage.Backend
	logger       *slog.Logger
	historyLimit int
	placeholder  string
	now          func() time.Time
	hooks        []HistoryHook

	mu      sync.Mutex
	pending []HistoryRecord // appended under mu, delivered to hooks before unlock
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit overrides the history bound.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithPlaceholderAddress sets the address used when no owner is known.
func WithPlaceholderAddress(addr string) Option {
	return func(s *Store) {
		if addr != "" {
			s.placeholder = addr
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHistoryHook registers a hook for persisted history entries.
func WithHistoryHook(h HistoryHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// NewStore creates a store on top of backend.
func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		historyLimit: DefaultHistoryLimit,
		placeholder:  config.DefaultPlaceholderAddress,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceholderAddress returns the address used when no owner is known.
func (s *Store) PlaceholderAddress() string {
	return s.placeholder
}

func (s *Store) lock() {
	s.mu.Lock()
}

func (s *Store) unlock(ctx context.Context) {
	for _, rec := range s.pending {
		for _, hook := range s.hooks {
			hook(ctx, rec)
		}
	}
	s.pending = nil
	s.mu.Unlock()
}

// List returns every record regardless of status, in storage order.
func (s *Store) List(ctx context.Context) ([]DomainRecord, error) {
	return s.loadDomains(ctx)
}

// ListActive returns the records that are not soft-deleted.
func (s *Store) ListActive(ctx context.Context) ([]DomainRecord, error) {
	domains, err := s.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]DomainRecord, 0, len(domains))
	for _, d := range domains {
		if !d.Deleted() {
			active = append(active, d)
		}
	}
	return active, nil
}

// Get returns the non-deleted record named name.
func (s *Store) Get(ctx context.Context, name string) (*DomainRecord, error) {
	domains, err := s.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(domains, name)
	if i < 0 || domains[i].Deleted() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec := domains[i]
	return &rec, nil
}

// Upsert stores rec keyed by name: an existing record with the same name,
// deleted or not, is replaced in its slot, otherwise rec is appended.
// A registered entry is always logged.
func (s *Store) Upsert(ctx context.Context, rec DomainRecord) error {
	if err := checkName(rec.Name); err != nil {
		return err
	}

	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}

	s.prepareNew(&rec)
	if i := indexOf(domains, rec.Name); i >= 0 {
		rec.Version = domains[i].Version + 1
		domains[i] = rec
	} else {
		domains = append(domains, rec)
	}

	if err := s.saveDomains(ctx, domains); err != nil {
		return err
	}
	return s.appendHistoryLocked(ctx, s.newHistory("reg", rec.Name, ActionRegistered, s.placeholder, map[string]any{
		"plan":  rec.Plan,
		"nftId": rec.NftID,
	}))
}

// Register creates a record for an unused name. A name held by any record
// fails with ErrAlreadyExists; a soft-deleted name must go through Restore.
func (s *Store) Register(ctx context.Context, rec DomainRecord) error {
	if err := checkName(rec.Name); err != nil {
		return err
	}

	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}
	if i := indexOf(domains, rec.Name); i >= 0 {
		if domains[i].Deleted() {
			return fmt.Errorf("%w: %s was deleted and must be restored", ErrAlreadyExists, rec.Name)
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.Name)
	}

	s.prepareNew(&rec)
	domains = append(domains, rec)
	if err := s.saveDomains(ctx, domains); err != nil {
		return err
	}
	return s.appendHistoryLocked(ctx, s.newHistory("reg", rec.Name, ActionRegistered, s.placeholder, map[string]any{
		"plan":  rec.Plan,
		"nftId": rec.NftID,
	}))
}

// Restore re-registers a soft-deleted name in its existing slot. The new
// record keeps the transfer history of the one it replaces.
func (s *Store) Restore(ctx context.Context, rec DomainRecord) error {
	if err := checkName(rec.Name); err != nil {
		return err
	}

	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}
	i := indexOf(domains, rec.Name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.Name)
	}
	prev := domains[i]
	if !prev.Deleted() {
		return fmt.Errorf("%w: %s", ErrNotDeleted, rec.Name)
	}

	s.prepareNew(&rec)
	rec.TransferHistory = append(append([]TransferRecord(nil), prev.TransferHistory...), rec.TransferHistory...)
	rec.Version = prev.Version + 1
	domains[i] = rec

	if err := s.saveDomains(ctx, domains); err != nil {
		return err
	}
	return s.appendHistoryLocked(ctx, s.newHistory("reg", rec.Name, ActionRegistered, s.placeholder, map[string]any{
		"plan":       rec.Plan,
		"nftId":      rec.NftID,
		"restored":   true,
		"previousId": prev.ID,
	}))
}

// UpdateCode applies a partial website source update. Status is ignored
// when matching by name.
func (s *Store) UpdateCode(ctx context.Context, name string, code CodeUpdate) error {
	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}
	i := indexOf(domains, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	d := &domains[i]
	if code.HTML != nil {
		d.HTMLCode = *code.HTML
	}
	if code.CSS != nil {
		d.CSSCode = *code.CSS
	}
	if code.JS != nil {
		d.JSCode = *code.JS
	}
	d.Version++

	if err := s.saveDomains(ctx, domains); err != nil {
		return err
	}
	return s.appendHistoryLocked(ctx, s.newHistory("update", name, ActionDNSUpdated, s.placeholder, map[string]any{
		"type": "code_update",
	}))
}

// SetPublished overwrites the publish flag. It does not log history.
func (s *Store) SetPublished(ctx context.Context, name string, published bool) error {
	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}
	i := indexOf(domains, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	domains[i].IsPublished = published
	domains[i].Version++
	return s.saveDomains(ctx, domains)
}

// Delete soft-deletes the named record. Deleting an already deleted
// record fails with ErrAlreadyDeleted and has no side effects.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return err
	}
	i := indexOf(domains, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	d := &domains[i]
	if d.Deleted() {
		return fmt.Errorf("%w: %s", ErrAlreadyDeleted, name)
	}

	d.Status = StatusDeleted
	d.Version++
	if err := s.saveDomains(ctx, domains); err != nil {
		return err
	}
	return s.appendHistoryLocked(ctx, s.newHistory("del", name, ActionDeleted, s.placeholder, map[string]any{
		"nftId": d.NftID,
	}))
}

// Transfer records a completed ownership change of the named record to
// toAddress and returns the appended transfer.
func (s *Store) Transfer(ctx context.Context, name, toAddress string) (*TransferRecord, error) {
	toAddress = strings.TrimSpace(toAddress)
	if toAddress == "" {
		return nil, fmt.Errorf("%w: recipient is empty", ErrInvalidAddress)
	}

	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(domains, name)
	if i < 0 || domains[i].Deleted() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	d := &domains[i]

	from := s.ownerOf(d)
	if strings.EqualFold(from, toAddress) {
		return nil, fmt.Errorf("%w: %s", ErrSameOwner, toAddress)
	}

	txHash, err := transactionHash()
	if err != nil {
		return nil, fmt.Errorf("generating transaction hash: %w", err)
	}
	tr := TransferRecord{
		ID:              "transfer_" + uuid.NewString(),
		FromAddress:     from,
		ToAddress:       toAddress,
		Timestamp:       s.now().UnixMilli(),
		TransactionHash: txHash,
		Status:          TransferCompleted,
	}
	d.TransferHistory = append(d.TransferHistory, tr)
	d.OwnerAddress = toAddress
	d.Version++

	if err := s.saveDomains(ctx, domains); err != nil {
		return nil, err
	}
	err = s.appendHistoryLocked(ctx, s.newHistory("transfer", name, ActionTransferred, from, map[string]any{
		"fromAddress":     from,
		"toAddress":       toAddress,
		"transactionHash": txHash,
	}))
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// Stats derives counts over the records and the history log.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	domains, err := s.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalDomains:      len(domains),
		TotalTransactions: len(history),
	}
	for _, d := range domains {
		switch d.Status {
		case StatusActive:
			st.ActiveDomains++
		case StatusExpired:
			st.ExpiredDomains++
		case StatusDeleted:
			st.DeletedDomains++
		}
	}
	n := min(len(history), RecentActivitySize)
	st.RecentActivity = append([]HistoryRecord{}, history[:n]...)
	return st, nil
}

// prepareNew fills defaults on a record about to be created.
func (s *Store) prepareNew(rec *DomainRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusActive
	}
	if rec.PurchaseDate.IsZero() {
		rec.PurchaseDate = s.now().UTC()
	}
	if rec.OwnerAddress == "" {
		rec.OwnerAddress = s.placeholder
	}
	rec.Version = 1
}

func (s *Store) ownerOf(d *DomainRecord) string {
	if owner := d.CurrentOwner(); owner != "" {
		return owner
	}
	return s.placeholder
}

func (s *Store) loadDomains(ctx context.Context) ([]DomainRecord, error) {
	var domains []DomainRecord
	if err := s.readJSON(ctx, storage.DomainsKey, &domains); err != nil {
		return nil, err
	}
	if domains == nil {
		domains = []DomainRecord{}
	}
	return domains, nil
}

func (s *Store) saveDomains(ctx context.Context, domains []DomainRecord) error {
	return s.writeJSON(ctx, storage.DomainsKey, domains)
}

func (s *Store) readJSON(ctx context.Context, key string, v any) error {
	b, err := s.backend.Read(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrStorageUnavailable, key, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.backend.Write(ctx, key, b); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStorageUnavailable, key, err)
	}
	return nil
}

func indexOf(domains []DomainRecord, name string) int {
	for i := range domains {
		if domains[i].Name == name {
			return i
		}
	}
	return -1
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	return nil
}

// transactionHash synthesizes a 0x-prefixed 32 byte hex hash.
func transactionHash() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}
