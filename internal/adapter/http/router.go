package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercadito/storefront/internal/adapter/http/middleware"
	"github.com/mercadito/storefront/internal/logging"
)

func NewRouter(ch *CartHandler, ph *CatalogHandler, co *CheckoutHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/products", ph.ListProducts)
		v1.POST("/products", ph.CreateProduct)

		v1.GET("/cart", ch.GetCart)
		v1.GET("/cart/events", ch.Events)
		v1.POST("/cart/items", ch.AddItem)
		v1.PATCH("/cart/items/:id", ch.SetQuantity)
		v1.DELETE("/cart/items/:id", ch.RemoveItem)
		v1.DELETE("/cart", ch.ClearCart)

		v1.POST("/checkout", co.Checkout)
		v1.GET("/orders/:id", co.GetOrder)
	}

	return r
}
