package remote

import (
	"context"
	"encoding/json"
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

func TestGetProductByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "p-1", "name": "Widget", "price": 10.00, "stock": 7}`))
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	product, err := g.GetProductByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, product)

	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, 7, product.Stock)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("10.00")))
}

func TestGetProductByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	product, err := g.GetProductByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestGetProductByIDRemoteErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	_, err := g.GetProductByID(context.Background(), "p-1")
	assert.ErrorIs(t, err, apporder.ErrServiceUnavailable)
}

func TestReduceStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/p-1/stock", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-Internal-Api-Key"))

		var body struct {
			Quantity int `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 3, body.Quantity)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	assert.NoError(t, g.ReduceStock(context.Background(), "p-1", 3))
}

func TestReduceStockFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	err := g.ReduceStock(context.Background(), "p-1", 3)
	assert.ErrorIs(t, err, apporder.ErrServiceUnavailable)
}

func TestReduceStockBreakerOpenIsUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewProductGateway(testConfig("", "", srv.URL), observability.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, g.ReduceStock(ctx, "p-1", 1), apporder.ErrServiceUnavailable)
	}
	tripped := hits.Load()

	assert.ErrorIs(t, g.ReduceStock(ctx, "p-1", 1), apporder.ErrServiceUnavailable)
	assert.Equal(t, tripped, hits.Load())
}
