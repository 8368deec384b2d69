package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLenientAbsorbsStorageFailures(t *testing.T) {
	ctx := context.Background()
	l := NewLenient(NewStore(failingBackend{}), discardLogger())

	assert.Empty(t, l.Domains(ctx))
	assert.NotNil(t, l.Domains(ctx))
	assert.Nil(t, l.Domain(ctx, "x"))
	assert.False(t, l.Delete(ctx, "x"))
	assert.False(t, l.Transfer(ctx, "x", recipient))
	assert.Empty(t, l.History(ctx))
	assert.Equal(t, 0, l.Stats(ctx).TotalDomains)

	// no panics, no return values
	l.Upsert(ctx, record("x"))
	l.UpdateCode(ctx, "x", CodeUpdate{})
	l.Publish(ctx, "x", true)
}

func TestLenientHappyPath(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	l := NewLenient(s, discardLogger())

	l.Upsert(ctx, record("x"))
	require.NotNil(t, l.Domain(ctx, "x"))

	html := "<h1>x</h1>"
	l.UpdateCode(ctx, "x", CodeUpdate{HTML: &html})
	l.Publish(ctx, "x", true)
	d := l.Domain(ctx, "x")
	require.NotNil(t, d)
	assert.Equal(t, html, d.HTMLCode)
	assert.True(t, d.IsPublished)

	assert.True(t, l.Transfer(ctx, "x", recipient))
	assert.True(t, l.Delete(ctx, "x"))
	assert.False(t, l.Delete(ctx, "x"), "second delete reports failure")
	assert.Nil(t, l.Domain(ctx, "x"))

	assert.Len(t, l.Domains(ctx), 1)
	assert.Len(t, l.History(ctx), 4)
	assert.Equal(t, 1, l.Stats(ctx).DeletedDomains)
}
