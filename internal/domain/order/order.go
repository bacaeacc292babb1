package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: conflict")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: item quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("order: item price must be zero or greater")
)

type Status string

// Only StatusConfirmed is produced by the creation workflow today; the type
// stays open for future lifecycle states.
const (
	StatusConfirmed Status = "confirmed"
)

// Item is a snapshot of one cart line at order time. Name and price are
// copied, not live-linked to the catalog, and never mutated after creation.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Subtotal returns price multiplied by quantity, exact decimal arithmetic.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root. TotalPrice always equals the sum of item
// subtotals; IdempotencyKey, when set, is unique across all orders.
type Order struct {
	ID             string
	UserID         string
	Items          []Item
	Status         Status
	TotalPrice     decimal.Decimal
	IdempotencyKey string
	CreatedAt      time.Time
}

func New(id, userID, idempotencyKey string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidPrice, item.ProductID)
		}
		total = total.Add(item.Subtotal())
	}

	return &Order{
		ID:             id,
		UserID:         userID,
		Items:          append([]Item(nil), items...),
		Status:         StatusConfirmed,
		TotalPrice:     total,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Clone returns a deep copy so stores can hand out orders without sharing
// the item slice with callers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}
