package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pendergraft/decentradns/internal/storage"
)

// History returns the activity log, newest first, narrowed by filter.
func (s *Store) History(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error) {
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]HistoryRecord, 0, len(history))
	for _, h := range history {
		if query != "" && !strings.Contains(strings.ToLower(h.DomainName), query) {
			continue
		}
		if filter.Action != "" && h.Action != filter.Action {
			continue
		}
		out = append(out, h)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// AppendHistory adds rec to the front of the log, evicting the oldest
// entries beyond the history limit. Missing id and timestamp are filled in.
func (s *Store) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	if rec.Action != "" && !rec.Action.Valid() {
		return fmt.Errorf("unknown history action %q", rec.Action)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = s.now().UnixMilli()
	}
	if rec.UserAddress == "" {
		rec.UserAddress = s.placeholder
	}

	s.lock()
	defer s.unlock(ctx)
	return s.appendHistoryLocked(ctx, rec)
}

// ClearHistory drops the whole log.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.lock()
	defer s.unlock(ctx)

	if err := s.backend.Delete(ctx, storage.HistoryKey); err != nil {
		return fmt.Errorf("%w: clearing history: %w", ErrStorageUnavailable, err)
	}
	s.logger.Info("history cleared")
	return nil
}

// appendHistoryLocked must be called with s.mu held.
func (s *Store) appendHistoryLocked(ctx context.Context, rec HistoryRecord) error {
	history, err := s.loadHistory(ctx)
	if err != nil {
		return err
	}

	history = append([]HistoryRecord{rec}, history...)
	if len(history) > s.historyLimit {
		history = history[:s.historyLimit]
	}

	if err := s.writeJSON(ctx, storage.HistoryKey, history); err != nil {
		return err
	}
	s.pending = append(s.pending, rec)
	return nil
}

func (s *Store) loadHistory(ctx context.Context) ([]HistoryRecord, error) {
	var history []HistoryRecord
	if err := s.readJSON(ctx, storage.HistoryKey, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []HistoryRecord{}
	}
	return history, nil
}

func (s *Store) newHistory(prefix, name string, action Action, user string, details map[string]any) HistoryRecord {
	return HistoryRecord{
		ID:          prefix + "_" + uuid.NewString(),
		DomainName:  name,
		Action:      action,
		Timestamp:   s.now().UnixMilli(),
		Details:     details,
		UserAddress: user,
	}
}
