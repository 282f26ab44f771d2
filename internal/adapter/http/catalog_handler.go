package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mercadito/storefront/internal/adapter/catalog"
	"github.com/mercadito/storefront/internal/cart"
)

// ProductLister is the catalog read the listing view renders from.
type ProductLister interface {
	List(ctx context.Context) ([]cart.Product, error)
}

// ProductCreator backs the product-create form.
type ProductCreator interface {
	Create(ctx context.Context, in catalog.CreateInput) (cart.Product, error)
}

// CatalogGateway is the catalog surface the storefront views need.
type CatalogGateway interface {
	ProductLister
	ProductCreator
}

type CatalogHandler struct {
	catalog CatalogGateway
	store   *cart.Store
}

func NewCatalogHandler(catalog CatalogGateway, store *cart.Store) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, store: store}
}

// ListProducts returns the catalog plus the cart badge count, the two
// things the listing view renders.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	products, err := h.catalog.List(ctx)
	if err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":      products,
		"cartItemCount": h.store.ItemCount(),
	})
}

type createProductReq struct {
	Name        string  `json:"name" binding:"required,min=3"`
	Description string  `json:"description" binding:"required,min=10"`
	Image       string  `json:"image" binding:"required,url"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
	Active      *bool   `json:"isActive"`
}

// CreateProduct registers a new catalog product on behalf of the
// product-create view.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := h.catalog.Create(ctx, catalog.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		Active:      active,
	})
	if err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
