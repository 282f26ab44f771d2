package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mercadito/storefront/internal/adapter/order"
	"github.com/mercadito/storefront/internal/cart"
)

// ErrEmptyCart rejects a checkout with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// Contact holds the customer fields of a checkout submission.
type Contact struct {
	Name            string
	Email           string
	ShippingAddress string
}

// Checkout submits the cart to the Order Service, pushes one stock
// decrement per distinct entry, and clears the cart. Any failure before
// the order is persisted leaves the cart exactly as it was, so the user
// can retry without re-adding items.
type Checkout struct {
	cart    CartStore
	catalog Catalog
	orders  OrderGateway
	log     *slog.Logger
}

func NewCheckout(cartStore CartStore, catalog Catalog, orders OrderGateway, log *slog.Logger) *Checkout {
	return &Checkout{cart: cartStore, catalog: catalog, orders: orders, log: log}
}

func (uc *Checkout) Execute(ctx context.Context, c Contact) (order.Order, error) {
	entries := uc.cart.Snapshot()
	if len(entries) == 0 {
		return order.Order{}, ErrEmptyCart
	}

	// Re-validate against live stock before any remote write. The cart
	// snapshots may be stale by checkout time.
	for _, e := range entries {
		p, err := uc.catalog.Get(ctx, e.Product.ID)
		if err != nil {
			return order.Order{}, fmt.Errorf("stock check %q: %w", e.Product.ID, err)
		}
		if e.Quantity > p.Stock {
			return order.Order{}, fmt.Errorf("%w: %d of %q available, %d in cart",
				cart.ErrInsufficientStock, p.Stock, e.Product.ID, e.Quantity)
		}
	}

	in := order.CreateInput{
		Items:           make([]order.ItemInput, 0, len(entries)),
		CustomerName:    c.Name,
		CustomerEmail:   c.Email,
		ShippingAddress: c.ShippingAddress,
	}
	for _, e := range entries {
		in.Items = append(in.Items, order.ItemInput{ItemID: e.Product.ID, Quantity: e.Quantity})
	}

	placed, err := uc.orders.Create(ctx, in)
	if err != nil {
		return order.Order{}, fmt.Errorf("submit order: %w", err)
	}

	// The order is persisted from here on. A failed decrement or clear
	// is logged, not surfaced: the purchase already happened.
	for _, e := range entries {
		if err := uc.catalog.DecrementStock(ctx, e.Product.ID, e.Quantity); err != nil {
			uc.log.Error("stock decrement failed after order",
				"order_id", placed.ID, "product_id", e.Product.ID, "err", err)
		}
	}
	if err := uc.cart.Clear(ctx); err != nil {
		uc.log.Warn("cart clear failed after order", "order_id", placed.ID, "err", err)
	}
	return placed, nil
}
