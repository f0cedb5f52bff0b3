// Package cart models the session shopping cart: product ids mapped to
// quantities. The cart itself is plain data that lives in a cookie
// session; resolving it against live products happens per request.
package cart

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

// Cart maps product ids (as decimal strings, the form sessions and JSON
// keep them in) to quantities. Quantities are always at least 1; a zero
// entry is removed instead.
type Cart map[string]int

// Normalize rebuilds a Cart from whatever shape the session stored.
// Older deployments kept the cart as a flat list of product ids, one
// entry per unit; those collapse into counted entries. Unknown shapes
// yield an empty cart rather than an error, so a corrupt session never
// breaks a request.
func Normalize(v any) Cart {
	c := Cart{}
	switch t := v.(type) {
	case Cart:
		for id, qty := range t {
			if qty > 0 {
				c[id] = qty
			}
		}
	case map[string]int:
		for id, qty := range t {
			if qty > 0 {
				c[id] = qty
			}
		}
	case map[string]any:
		for id, raw := range t {
			// Session JSON round-trips ints as float64.
			switch q := raw.(type) {
			case float64:
				if q > 0 {
					c[id] = int(q)
				}
			case int:
				if q > 0 {
					c[id] = q
				}
			}
		}
	case []any:
		for _, raw := range t {
			switch id := raw.(type) {
			case string:
				c[id]++
			case float64:
				c[strconv.FormatInt(int64(id), 10)]++
			case int:
				c[strconv.Itoa(id)]++
			}
		}
	case []string:
		for _, id := range t {
			c[id]++
		}
	}
	return c
}

// Add puts qty more units of a product in the cart. qty below 1 counts
// as 1, so "add to cart" buttons without a quantity field still work.
func (c Cart) Add(id string, qty int) {
	if qty < 1 {
		qty = 1
	}
	c[id] += qty
}

// Remove drops a product entirely regardless of quantity.
func (c Cart) Remove(id string) {
	delete(c, id)
}

// Adjust changes a product's quantity by delta, flooring at 1. Use
// Remove to take the product out; decrementing never does it implicitly.
// Adjusting a product that is not in the cart is a no-op.
func (c Cart) Adjust(id string, delta int) {
	qty, ok := c[id]
	if !ok {
		return
	}
	qty += delta
	if qty < 1 {
		qty = 1
	}
	c[id] = qty
}

// Count returns the total number of units across all products.
func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		n += qty
	}
	return n
}

// ProductSource is the store lookup the resolver needs.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*store.Product, error)
}

// Line is one resolved cart row.
type Line struct {
	Product  store.Product `json:"product"`
	Quantity int           `json:"quantity"`
	Subtotal int64         `json:"subtotal"`
}

// Summary is the whole cart priced against live product data.
type Summary struct {
	Lines []Line `json:"items"`
	Total int64  `json:"total"`
	Count int    `json:"count"`
}

// Resolve prices the cart against the store. Entries whose product id is
// malformed or no longer exists are pruned from the cart in place, so a
// stale session heals itself on the next view. Lines come back in a
// stable order.
func Resolve(ctx context.Context, src ProductSource, c Cart) (*Summary, error) {
	sum := &Summary{Lines: []Line{}}

	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			delete(c, id)
			continue
		}
		p, err := src.GetProduct(ctx, pid)
		if errors.Is(err, store.ErrProductNotFound) {
			delete(c, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		qty := c[id]
		sum.Lines = append(sum.Lines, Line{
			Product:  *p,
			Quantity: qty,
			Subtotal: p.Price * int64(qty),
		})
		sum.Total += p.Price * int64(qty)
		sum.Count += qty
	}
	return sum, nil
}

// Items converts a resolved summary into codec items for persisting an
// order.
func (s *Summary) Items() []orderformat.Item {
	items := make([]orderformat.Item, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, orderformat.Item{
			ID:       l.Product.ID,
			Name:     l.Product.Name,
			Quantity: l.Quantity,
		})
	}
	return items
}
