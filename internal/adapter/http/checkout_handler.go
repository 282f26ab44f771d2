package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mercadito/storefront/internal/adapter/order"
	"github.com/mercadito/storefront/internal/cart"
	"github.com/mercadito/storefront/internal/logging"
	"github.com/mercadito/storefront/internal/usecase"
)

// OrderGetter backs the confirmation view lookup.
type OrderGetter interface {
	Get(ctx context.Context, id string) (order.Order, error)
}

type CheckoutHandler struct {
	checkout *usecase.Checkout
	orders   OrderGetter
}

func NewCheckoutHandler(checkout *usecase.Checkout, orders OrderGetter) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, orders: orders}
}

type checkoutReq struct {
	CustomerName    string `json:"customerName" binding:"required"`
	CustomerEmail   string `json:"customerEmail" binding:"required,email"`
	ShippingAddress string `json:"shippingAddress" binding:"required"`
}

// Checkout submits the cart. A remote failure leaves the cart intact so
// the shopper can retry without re-adding items.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	placed, err := h.checkout.Execute(ctx, usecase.Contact{
		Name:            req.CustomerName,
		Email:           req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, usecase.ErrEmptyCart):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, cart.ErrInsufficientStock):
			status = http.StatusConflict
		}
		logging.From(c).Error("checkout failed", "status", status, "err", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, placed)
}

// GetOrder proxies the confirmation view's order lookup.
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	o, err := h.orders.Get(ctx, c.Param("id"))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, order.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}
