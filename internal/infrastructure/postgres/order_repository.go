package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/marketsquare/order-service/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// OrderRepository persists orders in postgres. The unique index on
// idempotency_key makes the duplicate check atomic at the database, which is
// what closes the race between two concurrent requests carrying the same key.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*OrderRepository, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &OrderRepository{pool: pool}, nil
}

func (r *OrderRepository) Close() {
	r.pool.Close()
}

// Migrate creates the order tables when they do not exist yet.
func (r *OrderRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			total_price NUMERIC(18,4) NOT NULL,
			idempotency_key TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_idempotency_key
			ON orders(idempotency_key) WHERE idempotency_key IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price NUMERIC(18,4) NOT NULL,
			PRIMARY KEY (order_id, position)
		)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, status, total_price, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		order.ID, order.UserID, string(order.Status), order.TotalPrice.String(),
		order.IdempotencyKey, order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, i, item.ProductID, item.ProductName, item.Quantity, item.Price.String(),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, `WHERE idempotency_key = $1`, key)
}

func (r *OrderRepository) findOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	var (
		order domain.Order
		total string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_price::text, COALESCE(idempotency_key, ''), created_at
		 FROM orders `+where,
		arg,
	).Scan(&order.ID, &order.UserID, (*string)(&order.Status), &total, &order.IdempotencyKey, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select order: %w", err)
	}

	order.TotalPrice, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse total_price: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, quantity, price::text
		 FROM order_items WHERE order_id = $1 ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: select order items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item  domain.Item
			price string
		)
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("postgres: scan order item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("postgres: parse item price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate order items: %w", err)
	}
	return items, nil
}
