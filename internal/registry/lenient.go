package registry

import (
	"context"
	"log/slog"
)

// Lenient exposes the store with absorbed failures: every error is logged
// and converted to an empty value, nil or false. It serves callers that only
// need to know whether something worked.
type Lenient struct {
	store  *Store
	logger *slog.Logger
}

// NewLenient wraps store.
func NewLenient(store *Store, logger *slog.Logger) *Lenient {
	return &Lenient{store: store, logger: logger}
}

// Domains returns every record, or none on failure.
func (l *Lenient) Domains(ctx context.Context) []DomainRecord {
	domains, err := l.store.List(ctx)
	if err != nil {
		l.logger.Error("loading domains", "error", err)
		return []DomainRecord{}
	}
	return domains
}

// Domain returns the non-deleted record named name, or nil.
func (l *Lenient) Domain(ctx context.Context, name string) *DomainRecord {
	d, err := l.store.Get(ctx, name)
	if err != nil {
		l.logger.Debug("domain lookup failed", "name", name, "error", err)
		return nil
	}
	return d
}

// Upsert stores rec, logging any failure.
func (l *Lenient) Upsert(ctx context.Context, rec DomainRecord) {
	if err := l.store.Upsert(ctx, rec); err != nil {
		l.logger.Error("saving domain", "name", rec.Name, "error", err)
	}
}

// UpdateCode applies a code update, logging any failure.
func (l *Lenient) UpdateCode(ctx context.Context, name string, code CodeUpdate) {
	if err := l.store.UpdateCode(ctx, name, code); err != nil {
		l.logger.Error("updating domain code", "name", name, "error", err)
	}
}

// Publish sets the publish flag, logging any failure.
func (l *Lenient) Publish(ctx context.Context, name string, published bool) {
	if err := l.store.SetPublished(ctx, name, published); err != nil {
		l.logger.Error("publishing domain", "name", name, "error", err)
	}
}

// Delete reports whether the record was soft-deleted.
func (l *Lenient) Delete(ctx context.Context, name string) bool {
	if err := l.store.Delete(ctx, name); err != nil {
		l.logger.Error("deleting domain", "name", name, "error", err)
		return false
	}
	return true
}

// Transfer reports whether the transfer was recorded.
func (l *Lenient) Transfer(ctx context.Context, name, toAddress string) bool {
	if _, err := l.store.Transfer(ctx, name, toAddress); err != nil {
		l.logger.Error("transferring domain", "name", name, "error", err)
		return false
	}
	return true
}

// History returns the whole log, or none on failure.
func (l *Lenient) History(ctx context.Context) []HistoryRecord {
	history, err := l.store.History(ctx, HistoryFilter{})
	if err != nil {
		l.logger.Error("loading history", "error", err)
		return []HistoryRecord{}
	}
	return history
}

// Stats returns derived counts, zero-valued on failure.
func (l *Lenient) Stats(ctx context.Context) Stats {
	st, err := l.store.Stats(ctx)
	if err != nil {
		l.logger.Error("computing stats", "error", err)
		return Stats{RecentActivity: []HistoryRecord{}}
	}
	return *st
}
