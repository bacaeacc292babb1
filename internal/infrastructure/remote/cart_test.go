package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	apporder "github.com/marketsquare/order-service/internal/application/order"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartPayload = `{
	"userId": "user-1",
	"items": {
		"line-b": {"productId": "p-2", "productName": "Gadget", "quantity": 1, "price": 5.50},
		"line-a": {"productId": "p-1", "productName": "Widget", "quantity": 2, "price": 10.00}
	}
}`

func TestGetCartMapsAndSortsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cartPayload))
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	cart, err := g.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, cart)

	assert.Equal(t, "user-1", cart.UserID)
	require.Len(t, cart.Items, 2)
	// Sorted by item key: line-a before line-b.
	assert.Equal(t, "p-1", cart.Items[0].ProductID)
	assert.Equal(t, "p-2", cart.Items[1].ProductID)
	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
}

func TestGetCartNotFoundIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	cart, err := g.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestGetCartRemoteErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	_, err := g.GetCart(context.Background(), "tok")
	assert.ErrorIs(t, err, apporder.ErrServiceUnavailable)
}

func TestGetCartBreakerOpenIsUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.GetCart(ctx, "tok")
		require.ErrorIs(t, err, apporder.ErrServiceUnavailable)
	}
	tripped := hits.Load()

	_, err := g.GetCart(ctx, "tok")
	assert.ErrorIs(t, err, apporder.ErrServiceUnavailable)
	assert.Equal(t, tripped, hits.Load(), "open breaker must not contact the remote")
}

func TestGetCartNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cart, err := g.GetCart(ctx, "tok")
		require.NoError(t, err)
		assert.Nil(t, cart)
	}
}

func TestClearCart(t *testing.T) {
	var deleted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		deleted.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	require.NoError(t, g.ClearCart(context.Background(), "tok"))
	assert.Equal(t, int32(1), deleted.Load())
}

func TestClearCartReturnsErrorForCallerToIgnore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewCartGateway(testConfig("", srv.URL, ""), observability.Nop())
	assert.Error(t, g.ClearCart(context.Background(), "tok"))
}
