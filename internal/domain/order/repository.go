package order

import "context"

// Repository persists order aggregates. Insert is atomic for the single
// order write and must reject a duplicate idempotency key with ErrConflict,
// even under concurrent submissions.
type Repository interface {
	Insert(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}
