package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mercadito/storefront/configs"
	"github.com/mercadito/storefront/internal/adapter/catalog"
	httpadapter "github.com/mercadito/storefront/internal/adapter/http"
	"github.com/mercadito/storefront/internal/adapter/http/middleware"
	"github.com/mercadito/storefront/internal/adapter/order"
	"github.com/mercadito/storefront/internal/adapter/storage"
	"github.com/mercadito/storefront/internal/cart"
	"github.com/mercadito/storefront/internal/logging"
	"github.com/mercadito/storefront/internal/usecase"
)

type App struct {
	Router *gin.Engine
	Store  *cart.Store
}

// InitWithConfig wires the whole storefront: storage, cart store (seeded
// before the router can accept a mutation), remote clients, use cases,
// handlers. The returned cleanup releases connections.
func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	log := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)

	// cart slot: redis when configured, otherwise the no-op capability
	var (
		slot cart.Storage = storage.Noop{}
		rdb  *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return nil, nil, err
		}
		slot = storage.NewRedis(rdb, cfg.Cart.StorageKey, cfg.Cart.TTL, logging.New("storage"))
	} else {
		log.Warn("no redis configured, cart will not survive restarts")
	}

	store := cart.NewStore(slot, logging.New("cart"))
	store.Init(context.Background())

	// keep the cart size gauge live off the subscription stream
	store.Subscribe(func(entries []cart.Entry) {
		units := 0
		for _, e := range entries {
			units += e.Quantity
		}
		middleware.ObserveCartSize(units)
	})

	catalogCli := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	orderCli := order.NewClient(cfg.Orders.BaseURL, cfg.Orders.Timeout)

	checkoutUC := usecase.NewCheckout(store, catalogCli, orderCli, logging.New("checkout"))

	ch := httpadapter.NewCartHandler(store, catalogCli)
	ph := httpadapter.NewCatalogHandler(catalogCli, store)
	co := httpadapter.NewCheckoutHandler(checkoutUC, orderCli)
	router := httpadapter.NewRouter(ch, ph, co)

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	return &App{Router: router, Store: store}, cleanup, nil
}

// compile-time port checks, kept next to the wiring
var (
	_ usecase.CartStore    = (*cart.Store)(nil)
	_ usecase.Catalog      = (*catalog.Client)(nil)
	_ usecase.OrderGateway = (*order.Client)(nil)
)
