package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mercadito/storefront/internal/adapter/catalog"
	"github.com/mercadito/storefront/internal/cart"
	"github.com/mercadito/storefront/internal/logging"
)

// ProductGetter resolves a product id to a fresh catalog snapshot before
// it enters the cart.
type ProductGetter interface {
	Get(ctx context.Context, id string) (cart.Product, error)
}

type CartHandler struct {
	store   *cart.Store
	catalog ProductGetter
}

func NewCartHandler(store *cart.Store, catalog ProductGetter) *CartHandler {
	return &CartHandler{store: store, catalog: catalog}
}

type addItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type setQuantityReq struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartView struct {
	Items     []cart.Entry `json:"items"`
	Total     string       `json:"total"`
	ItemCount int          `json:"itemCount"`
}

func (h *CartHandler) view() cartView {
	return cartView{
		Items:     h.store.Snapshot(),
		Total:     h.store.Total().String(),
		ItemCount: h.store.ItemCount(),
	}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.view())
}

// AddItem resolves the product against the catalog so the cart holds a
// fresh snapshot, then adds it.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		writeCartError(c, err)
		return
	}
	if err := h.store.Add(ctx, p, req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view())
}

func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req setQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if err := h.store.SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view())
}

// Events streams a cart snapshot per mutation as server-sent events, so
// view surfaces (catalog badge, cart table) stay live without polling.
func (h *CartHandler) Events(c *gin.Context) {
	updates := make(chan cartView, 8)
	cancel := h.store.Subscribe(func(entries []cart.Entry) {
		v := cartView{Items: entries}
		total := decimal.Zero
		for _, e := range entries {
			v.ItemCount += e.Quantity
			total = total.Add(e.Subtotal())
		}
		v.Total = total.String()
		pushLatest(updates, v)
	})
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-updates:
			c.SSEvent("cart", v)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// pushLatest queues v without blocking. When the buffer is full the
// oldest queued snapshot is evicted, so a slow consumer always
// converges on the current state.
func pushLatest(updates chan cartView, v cartView) {
	select {
	case updates <- v:
		return
	default:
	}
	select {
	case <-updates:
	default:
	}
	select {
	case updates <- v:
	default:
	}
}

func writeCartError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cart.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, cart.ErrInvalidQuantity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	default:
		var re *catalog.RemoteError
		if errors.As(err, &re) {
			status = http.StatusBadGateway
		}
	}
	logging.From(c).Warn("cart operation rejected", "status", status, "err", err)
	c.JSON(status, gin.H{"error": err.Error()})
}
