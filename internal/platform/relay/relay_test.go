package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/testutils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/", Token: "secret", RatePerSecond: 1000},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Upscale(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody domain.UpscaleParams

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"reference": "nonce-1"})
	})

	params := domain.UpscaleParams{MessageID: "m1", Index: 3, MessageHash: "HASH"}
	ref, err := c.Upscale(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "nonce-1", ref)
	assert.Equal(t, "/interactions/upscale", gotPath)
	assert.Equal(t, "secret", gotAuth)
	assert.Equal(t, params, gotBody)
}

func TestClient_AllActionsRoute(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"reference":"ok"}`))
	})
	ctx := context.Background()

	_, err := c.Generate(ctx, domain.GenerateParams{Prompt: "<#a#>cat"})
	require.NoError(t, err)
	_, err = c.Vary(ctx, domain.VaryParams{})
	require.NoError(t, err)
	_, err = c.Reset(ctx, domain.ResetParams{})
	require.NoError(t, err)
	_, err = c.Describe(ctx, domain.DescribeParams{})
	require.NoError(t, err)
	_, err = c.Blend(ctx, domain.BlendParams{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/interactions/generate",
		"/interactions/vary",
		"/interactions/reset",
		"/interactions/describe",
		"/interactions/blend",
	}, paths)
}

func TestClient_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"banned prompt"}`))
	})

	_, err := c.Generate(context.Background(), domain.GenerateParams{Prompt: "x"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestClient_UnreadableAcceptedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("accepted"))
	}))
	t.Cleanup(srv.Close)
	logger, rec := testutils.NewLogRecorder()
	c := New(Config{URL: srv.URL, RatePerSecond: 1000}, logger)

	ref, err := c.Blend(context.Background(), domain.BlendParams{})
	require.NoError(t, err, "an accepted submission is not failed over its response body")
	assert.Empty(t, ref)

	entry, ok := rec.Find("relay accepted submission with unreadable response")
	require.True(t, ok)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, domain.ActionBlend, entry["action"])
	assert.NotEmpty(t, entry["error"])
}

func TestClient_EmptyAcceptedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	logger, rec := testutils.NewLogRecorder()
	c := New(Config{URL: srv.URL, RatePerSecond: 1000}, logger)

	ref, err := c.Reset(context.Background(), domain.ResetParams{})
	require.NoError(t, err)
	assert.Empty(t, ref)
	_, logged := rec.Find("relay accepted submission with unreadable response")
	assert.False(t, logged)
}

func TestClient_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, domain.GenerateParams{Prompt: "x"})
	assert.Error(t, err)
}
