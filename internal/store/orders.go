package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateOrder inserts an order and returns its id. The Products field must
// already carry the orderformat encoding; the store does not interpret it.
func (s *Store) CreateOrder(ctx context.Context, o *Order) (int64, error) {
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (name, phone, address, location, products, total_price, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.Phone, o.Address, o.Location, o.Products, o.TotalPrice, o.Status, createdAt)
	if err != nil {
		return 0, fmt.Errorf("creating order: %w", err)
	}
	return res.LastInsertId()
}

// Order returns one order or ErrOrderNotFound.
func (s *Store) Order(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, address, location, products, total_price, status, created_at
		 FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.Name, &o.Phone, &o.Address, &o.Location, &o.Products, &o.TotalPrice, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// ListOrders returns all orders, newest first. Used by the chat context
// builder and the ops CLI.
func (s *Store) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, address, location, products, total_price, status, created_at
		 FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Name, &o.Phone, &o.Address, &o.Location,
			&o.Products, &o.TotalPrice, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
