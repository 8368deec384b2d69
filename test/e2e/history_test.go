//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/decentradns/pkg/client"
)

func TestHistory_FilterAndExport(t *testing.T) {
	ctx := context.Background()
	c := newClient(createTestAPIKey(t, "history"))

	first := uniqueName("hist")
	second := uniqueName("hist")
	for _, n := range []string{first, second} {
		_, err := c.Register(ctx, client.RegisterRequest{Name: n})
		require.NoError(t, err)
	}
	require.NoError(t, c.DeleteDomain(ctx, first))

	t.Run("action filter", func(t *testing.T) {
		hist, err := c.History(ctx, client.HistoryQuery{Query: first, Action: "deleted"})
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, first, hist[0].DomainName)
	})

	t.Run("limit", func(t *testing.T) {
		hist, err := c.History(ctx, client.HistoryQuery{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, hist, 2)
		assert.Equal(t, "deleted", hist[0].Action, "newest first")
	})

	t.Run("export", func(t *testing.T) {
		data, err := c.ExportHistory(ctx, client.HistoryQuery{Query: second})
		require.NoError(t, err)

		var entries []client.HistoryRecord
		require.NoError(t, json.Unmarshal(data, &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "registered", entries[0].Action)
	})
}

func TestHistory_Clear(t *testing.T) {
	ctx := context.Background()
	c := newClient(createTestAPIKey(t, "clear"))

	_, err := c.Register(ctx, client.RegisterRequest{Name: uniqueName("clear")})
	require.NoError(t, err)

	require.NoError(t, c.ClearHistory(ctx))

	hist, err := c.History(ctx, client.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, hist)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTransactions)
	assert.Empty(t, stats.RecentActivity)
}
