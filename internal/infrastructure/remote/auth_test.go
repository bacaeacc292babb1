package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marketsquare/order-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(authURL, cartURL, productURL string) Config {
	return Config{
		AuthURL:                 authURL,
		CartBaseURL:             cartURL,
		ProductBaseURL:          productURL,
		InternalAPIKey:          "secret-key",
		Timeout:                 2 * time.Second,
		BreakerFailureThreshold: 2,
		BreakerWindow:           time.Minute,
		BreakerCooldown:         time.Minute,
	}
}

func TestValidateTokenSuccess(t *testing.T) {
	var gotAuthHeader, gotAPIKey, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthHeader = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-Internal-Api-Key")
		var body struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotToken = body.Token
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "userId": "user-1"})
	}))
	defer srv.Close()

	g := NewAuthGateway(testConfig(srv.URL, "", ""), observability.Nop())
	result, err := g.ValidateToken(context.Background(), "tok-123")
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "Bearer tok-123", gotAuthHeader)
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "tok-123", gotToken)
}

func TestValidateTokenStripsBearerPrefixFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-123", body.Token)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "userId": "user-1"})
	}))
	defer srv.Close()

	g := NewAuthGateway(testConfig(srv.URL, "", ""), observability.Nop())
	result, err := g.ValidateToken(context.Background(), "Bearer tok-123")
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateTokenFailsClosedOnRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewAuthGateway(testConfig(srv.URL, "", ""), observability.Nop())
	result, err := g.ValidateToken(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestValidateTokenFailsClosedWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	g := NewAuthGateway(testConfig(srv.URL, "", ""), observability.Nop())
	result, err := g.ValidateToken(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestValidateTokenBreakerOpenBehavesAsInvalid(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewAuthGateway(testConfig(srv.URL, "", ""), observability.Nop())
	ctx := context.Background()

	// Trip the breaker (threshold 2).
	for i := 0; i < 2; i++ {
		result, err := g.ValidateToken(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, result.Valid)
	}
	tripped := hits.Load()

	// Breaker open: the fallback answers without contacting the remote, and
	// the outcome is indistinguishable from an invalid token.
	result, err := g.ValidateToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, tripped, hits.Load())
}
