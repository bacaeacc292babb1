package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apporder "github.com/marketsquare/order-service/internal/application/order"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/shopspring/decimal"
)

// ProductGateway reads catalog entries and decrements remote stock.
//
// Reads fail open like the cart fetch. ReduceStock failures, breaker-open
// included, surface as service-unavailable and abort the rest of the
// workflow; there is no compensation for reductions already applied.
type ProductGateway struct {
	caller
	baseURL string
	apiKey  string
}

func NewProductGateway(cfg Config, tel observability.Observability) *ProductGateway {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ProductGateway{
		caller:  newCaller("product", cfg, tel),
		baseURL: cfg.ProductBaseURL,
		apiKey:  cfg.InternalAPIKey,
	}
}

type productDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func (g *ProductGateway) GetProductByID(ctx context.Context, id string) (*apporder.Product, error) {
	var product *apporder.Product

	err := g.call("product", "get_product", func() error {
		resp, err := g.doRequest(ctx, http.MethodGet, g.baseURL+"/"+id, nil, nil)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusNotFound {
			drainAndClose(resp.Body)
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			drainAndClose(resp.Body)
			return fmt.Errorf("product service: unexpected status %d", resp.StatusCode)
		}

		var dto productDTO
		if err := decodeJSON(resp, &dto); err != nil {
			return err
		}
		product = &apporder.Product{ID: dto.ID, Name: dto.Name, Price: dto.Price, Stock: dto.Stock}
		return nil
	})
	if err != nil {
		return nil, apporder.NewUnavailable("product-service", err)
	}
	return product, nil
}

type reduceStockRequest struct {
	Quantity int `json:"quantity"`
}

func (g *ProductGateway) ReduceStock(ctx context.Context, id string, quantity int) error {
	err := g.call("product", "reduce_stock", func() error {
		payload, err := json.Marshal(reduceStockRequest{Quantity: quantity})
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		resp, err := g.doRequest(ctx, http.MethodPut, g.baseURL+"/"+id+"/stock", bytes.NewReader(payload), func(req *http.Request) {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Internal-Api-Key", g.apiKey)
		})
		if err != nil {
			return err
		}
		drainAndClose(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("product service: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return apporder.NewUnavailable("product-service", err)
	}
	return nil
}
