package pinning

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/decentradns/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComputeCIDIsDeterministic(t *testing.T) {
	a, err := ComputeCID([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	b, err := ComputeCID([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	c, err := ComputeCID([]byte(`{"name":"y"}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := ParseCID(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), parsed.Version())
}

func TestLocalPinner(t *testing.T) {
	ctx := context.Background()
	p := NewLocalPinner("https://gateway.example/")

	c, err := p.PinJSON(ctx, "x.dns", map[string]string{"name": "x.dns"})
	require.NoError(t, err)
	assert.True(t, p.Pinned(c))
	assert.Equal(t, "https://gateway.example/ipfs/"+c, p.GatewayURL(c))

	require.NoError(t, p.Unpin(ctx, c))
	assert.False(t, p.Pinned(c))

	assert.ErrorIs(t, p.Unpin(ctx, "not-a-cid"), ErrInvalidCID)
}

func TestLocalPinnerRejectsUnencodable(t *testing.T) {
	p := NewLocalPinner("")
	_, err := p.PinJSON(context.Background(), "x", make(chan int))
	assert.Error(t, err)
}

func TestPinataPinJSON(t *testing.T) {
	want, err := ComputeCID([]byte("metadata"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		var body pinJSONRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "x.dns", body.PinataMetadata.Name)

		_ = json.NewEncoder(w).Encode(pinResponse{IpfsHash: want, PinSize: 42})
	}))
	defer srv.Close()

	c := NewPinataClient(srv.URL, "key", "secret", WithLogger(discardLogger()))
	got, err := c.PinJSON(context.Background(), "x.dns", map[string]any{"name": "x.dns"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPinataRejectsBadCID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"IpfsHash":"garbage"}`))
	}))
	defer srv.Close()

	c := NewPinataClient(srv.URL, "key", "secret", WithLogger(discardLogger()))
	_, err := c.PinJSON(context.Background(), "x", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidCID)
}

func TestPinataRetriesServerErrors(t *testing.T) {
	want, _ := ComputeCID([]byte("retry"))
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(pinResponse{IpfsHash: want})
	}))
	defer srv.Close()

	c := NewPinataClient(srv.URL, "key", "secret", WithMaxRetries(3), WithLogger(discardLogger()))
	got, err := c.PinJSON(context.Background(), "x", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPinataDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewPinataClient(srv.URL, "key", "secret", WithMaxRetries(3), WithLogger(discardLogger()))
	_, err := c.PinJSON(context.Background(), "x", map[string]any{})

	var perr *PinataError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPinataUnpin(t *testing.T) {
	target, _ := ComputeCID([]byte("gone"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/pinning/unpin/"+target, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPinataClient(srv.URL, "key", "secret", WithLogger(discardLogger()))
	require.NoError(t, c.Unpin(context.Background(), target))
	assert.ErrorIs(t, c.Unpin(context.Background(), "nope"), ErrInvalidCID)
}

func TestNew(t *testing.T) {
	p, err := New(config.PinningConfig{Type: "local"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LocalPinner{}, p)

	_, err = New(config.PinningConfig{Type: "pinata"}, discardLogger())
	assert.Error(t, err, "credentials required")

	p, err = New(config.PinningConfig{Type: "pinata", PinataKey: "k", PinataSecret: "s", PinataURL: "http://x"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &PinataClient{}, p)

	_, err = New(config.PinningConfig{Type: "s3"}, discardLogger())
	assert.Error(t, err)
}
