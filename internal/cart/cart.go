package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientStock is returned when a requested quantity exceeds
	// the stock recorded on the product snapshot.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned for add requests below one unit.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotReady is returned for mutations issued before Init completed.
	ErrNotReady = errors.New("cart not initialized")
)

// Product is a read-only snapshot of a catalog record, captured at the
// moment it enters the cart. The cart never mutates it.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"isActive"`
}

// Entry is one cart line: a product snapshot plus the quantity intended
// for purchase.
type Entry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is price times quantity for this line.
func (e Entry) Subtotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Validate reports whether the entry can legally live in a cart.
func (e Entry) Validate() error {
	if e.Product.ID == "" {
		return errors.New("missing product id")
	}
	if e.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if e.Quantity > e.Product.Stock {
		return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientStock, e.Quantity, e.Product.Stock)
	}
	if e.Product.Price.IsNegative() {
		return errors.New("negative price")
	}
	return nil
}

// Storage is the persistence slot the store writes through to. Durability
// is a convenience: implementations may fail and the cart stays correct
// in memory. A no-op implementation covers contexts with no storage.
type Storage interface {
	Save(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, error)
}
