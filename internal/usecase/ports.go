package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mercadito/storefront/internal/adapter/order"
	"github.com/mercadito/storefront/internal/cart"
)

// CartStore is the slice of the cart store the checkout flow needs.
type CartStore interface {
	Snapshot() []cart.Entry
	Total() decimal.Decimal
	Clear(ctx context.Context) error
}

// Catalog covers the fresh stock read at checkout and the per-entry
// stock decrement after the order is persisted.
type Catalog interface {
	Get(ctx context.Context, id string) (cart.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}

// OrderGateway submits the checkout to the Order Service.
type OrderGateway interface {
	Create(ctx context.Context, in order.CreateInput) (order.Order, error)
}
