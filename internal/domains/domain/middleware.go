package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/pendergraft/decentradns/internal/auth"
	"github.com/pendergraft/decentradns/internal/observability/metrics"
	"github.com/pendergraft/decentradns/internal/registry"
)

// Service is the full domain service surface, implemented by the service
// and by every middleware.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Get(ctx context.Context, name string) (*Domain, error)
	List(ctx context.Context, filter ListFilter) ([]Domain, error)
	UpdateCode(ctx context.Context, name string, code registry.CodeUpdate) error
	SetPublished(ctx context.Context, name string, published bool) error
	Delete(ctx context.Context, name string) error
	Transfer(ctx context.Context, name, toAddress string) (*registry.TransferRecord, error)
	Stats(ctx context.Context) (*registry.Stats, error)
	History(ctx context.Context, filter registry.HistoryFilter) ([]registry.HistoryRecord, error)
	ClearHistory(ctx context.Context) error
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	start := time.Now()
	res, err := m.next.Register(ctx, req)
	m.logger.Info("Register",
		"name", req.Name,
		"plan", req.Plan,
		"years", req.DurationYears,
		"mode", req.Mode,
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}

func (m *loggingMiddleware) Get(ctx context.Context, name string) (*Domain, error) {
	start := time.Now()
	d, err := m.next.Get(ctx, name)
	m.logger.Debug("Get",
		"name", name,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter) ([]Domain, error) {
	start := time.Now()
	ds, err := m.next.List(ctx, filter)
	m.logger.Debug("List",
		"includeDeleted", filter.IncludeDeleted,
		"count", len(ds),
		"duration", time.Since(start),
		"error", err,
	)
	return ds, err
}

func (m *loggingMiddleware) UpdateCode(ctx context.Context, name string, code registry.CodeUpdate) error {
	start := time.Now()
	err := m.next.UpdateCode(ctx, name, code)
	m.logger.Info("UpdateCode",
		"name", name,
		"html", code.HTML != nil,
		"css", code.CSS != nil,
		"js", code.JS != nil,
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) SetPublished(ctx context.Context, name string, published bool) error {
	start := time.Now()
	err := m.next.SetPublished(ctx, name, published)
	m.logger.Info("SetPublished",
		"name", name,
		"published", published,
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := m.next.Delete(ctx, name)
	m.logger.Info("Delete",
		"name", name,
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) Transfer(ctx context.Context, name, toAddress string) (*registry.TransferRecord, error) {
	start := time.Now()
	tr, err := m.next.Transfer(ctx, name, toAddress)
	m.logger.Info("Transfer",
		"name", name,
		"to", toAddress,
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return tr, err
}

func (m *loggingMiddleware) Stats(ctx context.Context) (*registry.Stats, error) {
	start := time.Now()
	st, err := m.next.Stats(ctx)
	m.logger.Debug("Stats",
		"duration", time.Since(start),
		"error", err,
	)
	return st, err
}

func (m *loggingMiddleware) History(ctx context.Context, filter registry.HistoryFilter) ([]registry.HistoryRecord, error) {
	start := time.Now()
	h, err := m.next.History(ctx, filter)
	m.logger.Debug("History",
		"query", filter.Query,
		"action", filter.Action,
		"limit", filter.Limit,
		"count", len(h),
		"duration", time.Since(start),
		"error", err,
	)
	return h, err
}

func (m *loggingMiddleware) ClearHistory(ctx context.Context) error {
	start := time.Now()
	err := m.next.ClearHistory(ctx)
	m.logger.Warn("ClearHistory",
		"api_key", auth.GetKeyNameFromContext(ctx),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	start := time.Now()
	q, err := m.next.Quote(ctx, req)
	m.logger.Debug("Quote",
		"plan", req.Plan,
		"years", req.DurationYears,
		"duration", time.Since(start),
		"error", err,
	)
	return q, err
}

// InstrumentingMiddleware returns a service middleware that records
// prometheus metrics for every mutating operation.
func InstrumentingMiddleware() func(Service) Service {
	return func(next Service) Service {
		return &instrumentingMiddleware{next: next}
	}
}

type instrumentingMiddleware struct {
	next Service
}

func observe(op string, start time.Time, err error) {
	metrics.DomainOperation(op, metrics.Status(err), time.Since(start))
}

func (m *instrumentingMiddleware) Register(ctx context.Context, req RegisterRequest) (res *RegisterResult, err error) {
	defer func(start time.Time) { observe("register", start, err) }(time.Now())
	return m.next.Register(ctx, req)
}

func (m *instrumentingMiddleware) Get(ctx context.Context, name string) (*Domain, error) {
	return m.next.Get(ctx, name)
}

func (m *instrumentingMiddleware) List(ctx context.Context, filter ListFilter) ([]Domain, error) {
	return m.next.List(ctx, filter)
}

func (m *instrumentingMiddleware) UpdateCode(ctx context.Context, name string, code registry.CodeUpdate) (err error) {
	defer func(start time.Time) { observe("update_code", start, err) }(time.Now())
	return m.next.UpdateCode(ctx, name, code)
}

func (m *instrumentingMiddleware) SetPublished(ctx context.Context, name string, published bool) (err error) {
	defer func(start time.Time) { observe("publish", start, err) }(time.Now())
	return m.next.SetPublished(ctx, name, published)
}

func (m *instrumentingMiddleware) Delete(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())
	return m.next.Delete(ctx, name)
}

func (m *instrumentingMiddleware) Transfer(ctx context.Context, name, toAddress string) (tr *registry.TransferRecord, err error) {
	defer func(start time.Time) { observe("transfer", start, err) }(time.Now())
	return m.next.Transfer(ctx, name, toAddress)
}

func (m *instrumentingMiddleware) Stats(ctx context.Context) (*registry.Stats, error) {
	return m.next.Stats(ctx)
}

func (m *instrumentingMiddleware) History(ctx context.Context, filter registry.HistoryFilter) ([]registry.HistoryRecord, error) {
	return m.next.History(ctx, filter)
}

func (m *instrumentingMiddleware) ClearHistory(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("clear_history", start, err) }(time.Now())
	return m.next.ClearHistory(ctx)
}

func (m *instrumentingMiddleware) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	return m.next.Quote(ctx, req)
}
