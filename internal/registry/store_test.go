package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/decentradns/internal/storage"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewStore(backend, opts...), backend
}

func record(name string) DomainRecord {
	return DomainRecord{
		Name:      name,
		ExpiresAt: fixedNow.AddDate(1, 0, 0),
		NftID:     "SUI_NFT_" + name,
		IPFSHash:  "bafy" + name,
		Status:    StatusActive,
		Plan:      "Standard",
	}
}

const recipient = "0x1111111111111111111111111111111111111111111111111111111111111111"

func TestUpsertByName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first := record("x")
	first.ID = "id-1"
	require.NoError(t, s.Upsert(ctx, first))
	require.NoError(t, s.Upsert(ctx, record("y")))

	before, err := s.List(ctx)
	require.NoError(t, err)

	replacement := record("x")
	replacement.ID = "id-2"
	replacement.Plan = "Premium"
	require.NoError(t, s.Upsert(ctx, replacement))

	after, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before))

	// replaced in the same slot
	assert.Equal(t, "x", after[0].Name)
	assert.Equal(t, "id-2", after[0].ID)
	assert.Equal(t, "Premium", after[0].Plan)
	assert.Equal(t, int64(2), after[0].Version)
	for _, d := range after {
		assert.NotEqual(t, "id-1", d.ID)
	}

	// every upsert logs a registered entry
	history, err := s.History(ctx, HistoryFilter{Action: ActionRegistered})
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, map[string]any{"plan": "Premium", "nftId": "SUI_NFT_x"}, history[0].Details)
}

func TestUpsertDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, DomainRecord{Name: "bare"}))

	got, err := s.Get(ctx, "bare")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, StatusActive, got.Status)
	assert.True(t, fixedNow.Equal(got.PurchaseDate))
	assert.Equal(t, s.PlaceholderAddress(), got.OwnerAddress)
	assert.Equal(t, int64(1), got.Version)
}

func TestUpsertRejectsEmptyName(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Upsert(context.Background(), DomainRecord{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSoftDeleteVisibility(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))

	require.NoError(t, s.Delete(ctx, "x"))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "x", all[0].Name)
	assert.Equal(t, StatusDeleted, all[0].Status)

	_, err = s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestResurrectionViaUpsert(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))
	require.NoError(t, s.Delete(ctx, "x"))

	fresh := record("x")
	fresh.ID = "new-id"
	require.NoError(t, s.Upsert(ctx, fresh))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "new-id", got.ID)
	assert.Equal(t, StatusActive, got.Status)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Register(ctx, record("x")))
		got, err := s.Get(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "x", got.Name)
	})

	t.Run("rejects active name", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Register(ctx, record("x")))
		err := s.Register(ctx, record("x"))
		assert.ErrorIs(t, err, ErrAlreadyExists)

		history, err := s.History(ctx, HistoryFilter{})
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("rejects deleted name", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Register(ctx, record("x")))
		require.NoError(t, s.Delete(ctx, "x"))
		err := s.Register(ctx, record("x"))
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	old := record("x")
	old.ID = "old"
	require.NoError(t, s.Register(ctx, old))
	_, err := s.Transfer(ctx, "x", recipient)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "x"))

	fresh := record("x")
	fresh.ID = "fresh"
	require.NoError(t, s.Restore(ctx, fresh))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.ID)
	assert.Equal(t, StatusActive, got.Status)
	assert.Len(t, got.TransferHistory, 1, "transfer history survives a restore")

	history, err := s.History(ctx, HistoryFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ActionRegistered, history[0].Action)
	assert.Equal(t, true, history[0].Details["restored"])
	assert.Equal(t, "old", history[0].Details["previousId"])

	t.Run("not deleted", func(t *testing.T) {
		assert.ErrorIs(t, s.Restore(ctx, record("x")), ErrNotDeleted)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.ErrorIs(t, s.Restore(ctx, record("nope")), ErrNotFound)
	})
}

func TestHistoryBound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 150; i++ {
		require.NoError(t, s.AppendHistory(ctx, HistoryRecord{
			ID:         fmt.Sprintf("h%d", i),
			DomainName: "x",
			Action:     ActionDNSUpdated,
			Timestamp:  int64(i + 1),
		}))
	}

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, DefaultHistoryLimit)

	// newest first, oldest 50 evicted
	assert.Equal(t, "h149", history[0].ID)
	assert.Equal(t, "h50", history[len(history)-1].ID)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i-1].Timestamp, history[i].Timestamp)
	}
}

func TestHistoryLimitOption(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendHistory(ctx, HistoryRecord{DomainName: "x", Action: ActionRenewed}))
	}
	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestAppendHistoryFillsDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.AppendHistory(ctx, HistoryRecord{DomainName: "x", Action: ActionRenewed}))
	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, fixedNow.UnixMilli(), history[0].Timestamp)
	assert.Equal(t, s.PlaceholderAddress(), history[0].UserAddress)

	assert.Error(t, s.AppendHistory(ctx, HistoryRecord{DomainName: "x", Action: "exploded"}))
}

func TestHistoryFilter(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, record("alpha.sui")))
	require.NoError(t, s.Upsert(ctx, record("beta.sui")))
	require.NoError(t, s.Delete(ctx, "alpha.sui"))

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{name: "all", filter: HistoryFilter{}, want: []string{"alpha.sui", "beta.sui", "alpha.sui"}},
		{name: "query is case insensitive", filter: HistoryFilter{Query: "ALP"}, want: []string{"alpha.sui", "alpha.sui"}},
		{name: "action", filter: HistoryFilter{Action: ActionDeleted}, want: []string{"alpha.sui"}},
		{name: "query and action", filter: HistoryFilter{Query: "beta", Action: ActionDeleted}, want: []string{}},
		{name: "limit", filter: HistoryFilter{Limit: 2}, want: []string{"alpha.sui", "beta.sui"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := s.History(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(history))
			for _, h := range history {
				names = append(names, h.DomainName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))

	require.NoError(t, s.ClearHistory(ctx))

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)

	// records are untouched
	_, err = s.Get(ctx, "x")
	assert.NoError(t, err)
}

func TestPartialCodeUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	rec := record("x")
	rec.HTMLCode = "A"
	rec.CSSCode = "B"
	require.NoError(t, s.Upsert(ctx, rec))

	js := "C"
	require.NoError(t, s.UpdateCode(ctx, "x", CodeUpdate{JS: &js}))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "A", got.HTMLCode)
	assert.Equal(t, "B", got.CSSCode)
	assert.Equal(t, "C", got.JSCode)

	history, err := s.History(ctx, HistoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, ActionDNSUpdated, history[0].Action)
	assert.Equal(t, map[string]any{"type": "code_update"}, history[0].Details)
}

func TestUpdateCodeNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	html := "<p>hi</p>"
	err := s.UpdateCode(ctx, "missing", CodeUpdate{HTML: &html})
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history, "no history on a miss")
}

func TestSetPublished(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))

	require.NoError(t, s.SetPublished(ctx, "x", true))
	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.IsPublished)

	require.NoError(t, s.SetPublished(ctx, "x", false))
	got, err = s.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, got.IsPublished)

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1, "publishing does not log")

	assert.ErrorIs(t, s.SetPublished(ctx, "missing", true), ErrNotFound)
}

func TestTransferAppends(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))

	second := "0x2222222222222222222222222222222222222222222222222222222222222222"
	first, err := s.Transfer(ctx, "x", recipient)
	require.NoError(t, err)
	next, err := s.Transfer(ctx, "x", second)
	require.NoError(t, err)

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	require.Len(t, got.TransferHistory, 2)
	assert.Equal(t, first.ID, got.TransferHistory[0].ID)
	assert.Equal(t, next.ID, got.TransferHistory[1].ID)
	assert.NotEqual(t, got.TransferHistory[0].ID, got.TransferHistory[1].ID)

	// ownership follows the transfers
	assert.Equal(t, s.PlaceholderAddress(), got.TransferHistory[0].FromAddress)
	assert.Equal(t, recipient, got.TransferHistory[1].FromAddress)
	assert.Equal(t, second, got.OwnerAddress)

	assert.Equal(t, TransferCompleted, first.Status)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, first.TransactionHash)

	history, err := s.History(ctx, HistoryFilter{Action: ActionTransferred})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].Details["toAddress"])
	assert.Equal(t, recipient, history[0].UserAddress)
}

func TestHistoryUserAddress(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	const owner = "0x2222222222222222222222222222222222222222222222222222222222222222"
	rec := record("x")
	rec.OwnerAddress = owner
	require.NoError(t, s.Upsert(ctx, rec))
	html := "<p>hi</p>"
	require.NoError(t, s.UpdateCode(ctx, "x", CodeUpdate{HTML: &html}))
	_, err := s.Transfer(ctx, "x", recipient)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "x"))

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 4)

	// only transfers carry a real address, the sender
	assert.Equal(t, ActionDeleted, history[0].Action)
	assert.Equal(t, s.PlaceholderAddress(), history[0].UserAddress)
	assert.Equal(t, ActionTransferred, history[1].Action)
	assert.Equal(t, owner, history[1].UserAddress)
	assert.Equal(t, ActionDNSUpdated, history[2].Action)
	assert.Equal(t, s.PlaceholderAddress(), history[2].UserAddress)
	assert.Equal(t, ActionRegistered, history[3].Action)
	assert.Equal(t, s.PlaceholderAddress(), history[3].UserAddress)
}

func TestTransferErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))
	require.NoError(t, s.Upsert(ctx, record("gone")))
	require.NoError(t, s.Delete(ctx, "gone"))

	tests := []struct {
		name    string
		domain  string
		to      string
		wantErr error
	}{
		{name: "unknown domain", domain: "missing", to: recipient, wantErr: ErrNotFound},
		{name: "deleted domain", domain: "gone", to: recipient, wantErr: ErrNotFound},
		{name: "empty recipient", domain: "x", to: " ", wantErr: ErrInvalidAddress},
		{name: "same owner", domain: "x", to: s.PlaceholderAddress(), wantErr: ErrSameOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Transfer(ctx, tt.domain, tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, got.TransferHistory)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("a")))
	require.NoError(t, s.Upsert(ctx, record("b")))
	require.NoError(t, s.Upsert(ctx, record("c")))
	require.NoError(t, s.Delete(ctx, "c"))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalDomains)
	assert.Equal(t, 2, st.ActiveDomains)
	assert.Equal(t, 1, st.DeletedDomains)
	assert.Equal(t, 0, st.ExpiredDomains)
	assert.Equal(t, 4, st.TotalTransactions)
	assert.Len(t, st.RecentActivity, 4)
	assert.Equal(t, ActionDeleted, st.RecentActivity[0].Action)
}

func TestStatsRecentActivityCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for i := 0; i < 15; i++ {
		require.NoError(t, s.AppendHistory(ctx, HistoryRecord{DomainName: "x", Action: ActionRenewed}))
	}
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, st.TotalTransactions)
	assert.Len(t, st.RecentActivity, RecentActivitySize)
}

func TestDeleteIsOneShot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, record("x")))

	require.NoError(t, s.Delete(ctx, "x"))
	err := s.Delete(ctx, "x")
	assert.ErrorIs(t, err, ErrAlreadyDeleted)

	deleted, err := s.History(ctx, HistoryFilter{Action: ActionDeleted})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "SUI_NFT_x", deleted[0].Details["nftId"])

	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}

func TestVersionIncrements(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Register(ctx, record("x")))

	css := "body{}"
	require.NoError(t, s.UpdateCode(ctx, "x", CodeUpdate{CSS: &css}))
	require.NoError(t, s.SetPublished(ctx, "x", true))
	_, err := s.Transfer(ctx, "x", recipient)
	require.NoError(t, err)

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
}

func TestHistoryHook(t *testing.T) {
	ctx := context.Background()
	var got []HistoryRecord
	s, _ := newTestStore(t, WithHistoryHook(func(_ context.Context, rec HistoryRecord) {
		got = append(got, rec)
	}))

	require.NoError(t, s.Upsert(ctx, record("x")))
	require.NoError(t, s.SetPublished(ctx, "x", true))
	require.NoError(t, s.Delete(ctx, "x"))
	_ = s.Delete(ctx, "x")

	require.Len(t, got, 2)
	assert.Equal(t, ActionRegistered, got[0].Action)
	assert.Equal(t, ActionDeleted, got[1].Action)
}

func TestConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithHistoryLimit(1000))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Register(ctx, record(fmt.Sprintf("d%d", i))))
		}(i)
	}
	wg.Wait()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)

	history, err := s.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

// failingBackend fails every operation
type failingBackend struct{}

var errDiskGone = errors.New("disk gone")

func (failingBackend) Read(context.Context, string) ([]byte, error) { return nil, errDiskGone }
func (failingBackend) Write(context.Context, string, []byte) error  { return errDiskGone }
func (failingBackend) Delete(context.Context, string) error         { return errDiskGone }
func (failingBackend) Close() error                                 { return nil }
func (failingBackend) Migrate(context.Context) error                { return nil }

func TestStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingBackend{})

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, errDiskGone)

	_, err = s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Upsert(ctx, record("x")), ErrStorageUnavailable)
	assert.ErrorIs(t, s.Delete(ctx, "x"), ErrStorageUnavailable)
	assert.ErrorIs(t, s.ClearHistory(ctx), ErrStorageUnavailable)
	_, err = s.Stats(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestCorruptCollection(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	require.NoError(t, backend.Write(ctx, storage.DomainsKey, []byte("{not json")))

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestReadsLegacyLayout(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	legacy := `[{
		"id": "1718000000000",
		"name": "legacy.sui",
		"purchaseDate": "2024-06-10T06:13:20.000Z",
		"expiresAt": "2025-06-10T06:13:20.000Z",
		"nftId": "SUI_NFT_ABC",
		"ipfsHash": "QmXyz",
		"status": "active",
		"plan": "Standard",
		"userDetails": {"firstName": "Ada"},
		"htmlCode": "",
		"isPublished": false,
		"transferHistory": [{"id":"transfer_1","fromAddress":"0x1234...5678","toAddress":"0xabc","timestamp":1718000000001,"transactionHash":"0xdead","status":"completed"}]
	}]`
	require.NoError(t, backend.Write(ctx, storage.DomainsKey, []byte(legacy)))

	got, err := s.Get(ctx, "legacy.sui")
	require.NoError(t, err)
	assert.Equal(t, "SUI_NFT_ABC", got.NftID)
	assert.Equal(t, 2024, got.PurchaseDate.Year())
	assert.JSONEq(t, `{"firstName":"Ada"}`, string(got.UserDetails))
	assert.Equal(t, "0xabc", got.CurrentOwner())
}
