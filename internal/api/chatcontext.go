package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/oydokon/webshop/internal/chat"
	"github.com/oydokon/webshop/internal/store"
)

// chatContextLimit caps how many product rows get pasted into a prompt.
const chatContextLimit = 100

// storeContext feeds store rows to the chat assistant as plain text.
type storeContext struct {
	store *store.Store
}

// StoreContext adapts the store for chat context injection.
func StoreContext(st *store.Store) chat.ContextSource {
	return storeContext{store: st}
}

func (s storeContext) OrdersContext(ctx context.Context) (string, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, o := range orders {
		fmt.Fprintf(&b, "buyurtma #%d: %s, %s, %s, jami %d so'm, holat %s\n",
			o.ID, o.Name, o.Phone, o.Products, o.TotalPrice, o.Status)
	}
	return b.String(), nil
}

func (s storeContext) ProductsContext(ctx context.Context) (string, error) {
	products, err := s.store.ListProducts(ctx, chatContextLimit, 0)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "mahsulot #%d: %s, narx %d so'm, omborda %d\n",
			p.ID, p.Name, p.Price, p.Stock)
	}
	return b.String(), nil
}
