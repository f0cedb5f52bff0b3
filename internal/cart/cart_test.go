package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oydokon/webshop/internal/store"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Cart
	}{
		{"nil", nil, Cart{}},
		{"already a cart", Cart{"3": 2}, Cart{"3": 2}},
		{"json map", map[string]any{"3": float64(2), "7": float64(1)}, Cart{"3": 2, "7": 1}},
		{"legacy id list", []any{"3", "3", "7"}, Cart{"3": 2, "7": 1}},
		{"legacy numeric list", []any{float64(3), float64(3)}, Cart{"3": 2}},
		{"drops zero quantities", map[string]int{"3": 0, "7": 1}, Cart{"7": 1}},
		{"garbage", "not a cart", Cart{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestCartOps(t *testing.T) {
	c := Cart{}

	c.Add("3", 0) // quantityless add counts as one
	c.Add("3", 2)
	assert.Equal(t, Cart{"3": 3}, c)

	c.Adjust("3", -10) // decrement floors at 1
	assert.Equal(t, 1, c["3"])

	c.Adjust("7", 5) // absent product, no-op
	assert.NotContains(t, c, "7")

	c.Remove("3")
	assert.Empty(t, c)
	assert.Equal(t, 0, c.Count())
}

func TestCount(t *testing.T) {
	c := Cart{"3": 2, "7": 1}
	assert.Equal(t, 3, c.Count())
}

type mapSource map[int64]*store.Product

func (m mapSource) GetProduct(_ context.Context, id int64) (*store.Product, error) {
	p, ok := m[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return p, nil
}

func TestResolve(t *testing.T) {
	src := mapSource{
		3: {ID: 3, Name: "Tea", Price: 15000},
		7: {ID: 7, Name: "Cup", Price: 15000},
	}
	c := Cart{"3": 2, "7": 1, "99": 4, "bogus": 1}

	sum, err := Resolve(context.Background(), src, c)
	require.NoError(t, err)

	assert.Len(t, sum.Lines, 2)
	assert.Equal(t, int64(45000), sum.Total)
	assert.Equal(t, 3, sum.Count)

	// Dead entries were pruned from the session cart itself.
	assert.Equal(t, Cart{"3": 2, "7": 1}, c)

	items := sum.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, "Tea", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestResolve_Empty(t *testing.T) {
	sum, err := Resolve(context.Background(), mapSource{}, Cart{})
	require.NoError(t, err)
	assert.Empty(t, sum.Lines)
	assert.Zero(t, sum.Total)
}
