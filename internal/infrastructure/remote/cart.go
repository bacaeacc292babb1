package remote

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	apporder "github.com/marketsquare/order-service/internal/application/order"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/shopspring/decimal"
)

// CartGateway reads and clears the caller's cart.
//
// Fetch fails open: anything but a 404 surfaces as service-unavailable.
// Clear is best-effort; its errors never fail the workflow.
type CartGateway struct {
	caller
	url string
}

func NewCartGateway(cfg Config, tel observability.Observability) *CartGateway {
	if tel == nil {
		tel = observability.Nop()
	}
	return &CartGateway{
		caller: newCaller("cart", cfg, tel),
		url:    cfg.CartBaseURL + "/cart",
	}
}

type cartItemDTO struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type cartDTO struct {
	UserID string                 `json:"userId"`
	Items  map[string]cartItemDTO `json:"items"`
}

func (g *CartGateway) GetCart(ctx context.Context, token string) (*apporder.Cart, error) {
	var cart *apporder.Cart

	err := g.call("cart", "get_cart", func() error {
		resp, err := g.doRequest(ctx, http.MethodGet, g.url, nil, func(req *http.Request) {
			req.Header.Set("Authorization", bearer(token))
		})
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusNotFound {
			// Missing cart is a domain answer, not a dependency failure.
			drainAndClose(resp.Body)
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			drainAndClose(resp.Body)
			return fmt.Errorf("cart service: unexpected status %d", resp.StatusCode)
		}

		var dto cartDTO
		if err := decodeJSON(resp, &dto); err != nil {
			return err
		}
		cart = dto.toSnapshot()
		return nil
	})
	if err != nil {
		return nil, apporder.NewUnavailable("cart-service", err)
	}
	return cart, nil
}

// ClearCart deletes the remote cart. Callers treat failures as advisory.
func (g *CartGateway) ClearCart(ctx context.Context, token string) error {
	return g.call("cart", "clear_cart", func() error {
		resp, err := g.doRequest(ctx, http.MethodDelete, g.url, nil, func(req *http.Request) {
			req.Header.Set("Authorization", bearer(token))
		})
		if err != nil {
			return err
		}
		drainAndClose(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("cart service: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}

// toSnapshot flattens the upstream item map into a slice sorted by item key,
// so every consumer sees the lines in the same order on every call.
func (d cartDTO) toSnapshot() *apporder.Cart {
	keys := make([]string, 0, len(d.Items))
	for k := range d.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]apporder.CartItem, 0, len(keys))
	for _, k := range keys {
		item := d.Items[k]
		items = append(items, apporder.CartItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return &apporder.Cart{UserID: d.UserID, Items: items}
}
