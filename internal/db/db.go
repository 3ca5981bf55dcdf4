package db

import (
	"context"
	"fmt"

	"github.com/xtrntr/simex/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool holding historical order feeds
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// InsertOrders stores a batch of orders in one transaction
func (db *DB) InsertOrders(ctx context.Context, orders []models.Order) (int, error) {
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return 0, fmt.Errorf("order %d: %w", i, err)
		}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(
			"INSERT INTO orders (timestamp, product, type, price, amount) VALUES ($1, $2, $3, $4, $5)",
			o.Timestamp, o.Product, o.Type.String(), o.Price, o.Amount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to insert orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(orders), nil
}

// CountOrders returns the number of stored orders
func (db *DB) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// LoadOrders retrieves every stored order in feed order
func (db *DB) LoadOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, timestamp, product, type, price, amount
		FROM orders
		ORDER BY timestamp ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var typ string
		if err := rows.Scan(&order.ID, &order.Timestamp, &order.Product, &typ, &order.Price, &order.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if order.Type, err = models.ParseOrderType(typ); err != nil {
			return nil, fmt.Errorf("order %d: %w", order.ID, err)
		}
		if err := order.Validate(); err != nil {
			return nil, fmt.Errorf("order %d: %w", order.ID, err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetProducts retrieves the distinct products stored
func (db *DB) GetProducts(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, "SELECT DISTINCT product FROM orders ORDER BY product")
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Truncate removes every stored order
func (db *DB) Truncate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE orders RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to truncate orders: %w", err)
	}
	return nil
}
