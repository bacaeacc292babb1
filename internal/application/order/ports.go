package order

import (
	"context"

	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// AuthResult is the ephemeral outcome of a token validation. It is produced
// per call and never persisted.
type AuthResult struct {
	Valid  bool
	UserID string
}

// CartItem is one line of the remote cart snapshot.
type CartItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Cart is a read-only snapshot of the remote cart. Items are in a stable
// order (gateways sort the upstream item map by key) so downstream steps are
// deterministic.
type Cart struct {
	UserID string
	Items  []CartItem
}

// Product is a read-only snapshot of the remote catalog entry. Stock is
// mutated only through ProductGateway.ReduceStock, never locally.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// AuthGateway validates bearer tokens against the auth service. The gateway
// fails closed: transport failures and an open breaker are absorbed into
// Valid=false, so an unreachable auth service looks like an invalid token.
type AuthGateway interface {
	ValidateToken(ctx context.Context, token string) (AuthResult, error)
}

// CartGateway reads and clears the caller's remote cart.
// GetCart returns (nil, nil) when the cart does not exist; any other failure,
// breaker-open included, wraps ErrServiceUnavailable. ClearCart is
// best-effort and its errors are ignored by the workflow.
type CartGateway interface {
	GetCart(ctx context.Context, token string) (*Cart, error)
	ClearCart(ctx context.Context, token string) error
}

// ProductGateway reads catalog entries and decrements remote stock.
// GetProductByID returns (nil, nil) on not-found; other failures wrap
// ErrServiceUnavailable. ReduceStock has no compensation: a failure partway
// through a multi-item order leaves stock partially reduced.
type ProductGateway interface {
	GetProductByID(ctx context.Context, id string) (*Product, error)
	ReduceStock(ctx context.Context, id string, quantity int) error
}
