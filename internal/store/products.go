package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const productColumns = `id, name, price, description, stock, image, videos`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Stock, &p.Image, &p.Videos)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns a page of the catalog, newest first.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// CountProducts returns the catalog size.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// RandomProducts returns up to n random products for the recommendation
// strip.
func (s *Store) RandomProducts(ctx context.Context, n int) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY RANDOM() LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("picking random products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// GetProduct returns one product or ErrProductNotFound.
func (s *Store) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return p, nil
}

// ProductPrice resolves a product id (as it appears in an encoded order
// string) to its current unit price. A missing product, a malformed id, or
// a zero price all report absent so the receipt prints a blank rather than
// a false zero.
func (s *Store) ProductPrice(ctx context.Context, productID string) (int64, bool) {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return 0, false
	}
	var price int64
	err = s.db.QueryRowContext(ctx, `SELECT price FROM products WHERE id = ?`, id).Scan(&price)
	if err != nil || price == 0 {
		return 0, false
	}
	return price, true
}

// CreateProduct inserts a product and returns its id.
func (s *Store) CreateProduct(ctx context.Context, p *Product) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, price, description, stock, image, videos) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.Description, p.Stock, p.Image, p.Videos)
	if err != nil {
		return 0, fmt.Errorf("creating product: %w", err)
	}
	return res.LastInsertId()
}

// UpdateProduct overwrites a product row.
func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, price = ?, description = ?, stock = ?, image = ?, videos = ? WHERE id = ?`,
		p.Name, p.Price, p.Description, p.Stock, p.Image, p.Videos, p.ID)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes a product row.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows *sql.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// MediaList splits a comma-separated media column into clean filenames.
func MediaList(csv string) []string {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
