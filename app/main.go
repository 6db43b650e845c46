package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/storefront/app/internal/config"
	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	domproduct "example.com/storefront/app/internal/domain/product"
	domsettings "example.com/storefront/app/internal/domain/settings"
	"example.com/storefront/app/internal/domain/uow"
	"example.com/storefront/app/internal/infra/idempotency"
	"example.com/storefront/app/internal/infra/logging"
	"example.com/storefront/app/internal/infra/messaging/kafka"
	"example.com/storefront/app/internal/infra/metrics"
	"example.com/storefront/app/internal/infra/persistence/memory"
	"example.com/storefront/app/internal/infra/persistence/sqlstore"
	"example.com/storefront/app/internal/infra/security"
	httpapi "example.com/storefront/app/internal/interface/http"
	authuc "example.com/storefront/app/internal/usecase/auth"
	cartuc "example.com/storefront/app/internal/usecase/cart"
	checkoutuc "example.com/storefront/app/internal/usecase/checkout"
	orderuc "example.com/storefront/app/internal/usecase/order"
	productuc "example.com/storefront/app/internal/usecase/product"
	"example.com/storefront/app/internal/usecase/relay"
)

func main() {
	os.Exit(start(os.Args[1:]))
}

// start runs the server and returns the process exit code once every
// deferred cleanup has run.
func start(args []string) int {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("storefront stopped", zap.Error(err))
		return 1
	}
	return 0
}

// backend is the storage the services run on, either SQL or in-process.
type backend struct {
	carts    cartuc.CartRepository
	products domproduct.Repository
	orders   domorder.Repository
	outbox   domoutbox.Repository
	tx       uow.Manager
	ping     func(ctx context.Context) error
	close    func() error
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	if cfg.DB.Driver == "memory" {
		store := memory.NewStore()
		seedDemo(store)
		log.Warn("using in-memory store, data is lost on restart")
		return &backend{
			carts:    store.Carts(),
			products: store.Products(),
			orders:   store.Orders(),
			outbox:   store.Outbox(),
			tx:       store,
			ping:     func(context.Context) error { return nil },
			close:    func() error { return nil },
		}, nil
	}

	db, dialect, err := sqlstore.Open(ctx, cfg.DB.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	store := sqlstore.NewStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", zap.String("driver", dialect.Name))
	return &backend{
		carts:    store.Carts(),
		products: store.Products(),
		orders:   store.Orders(),
		outbox:   store.Outbox(),
		tx:       store,
		ping:     store.Ping,
		close:    db.Close,
	}, nil
}

func seedDemo(store *memory.Store) {
	store.PutProduct(domproduct.Product{ID: 1, Name: "Coffee mug", PriceCents: 799, Stock: 50, IsActive: true,
		Discount: &domproduct.Discount{Kind: domproduct.DiscountPercentage, Value: 10}})
	store.PutProduct(domproduct.Product{ID: 2, Name: "T-shirt", PriceCents: 1000, Stock: 20, IsActive: true,
		Discount: &domproduct.Discount{Kind: domproduct.DiscountFixed, Value: 2}})
	store.PutProduct(domproduct.Product{ID: 3, Name: "Poster", PriceCents: 2500, Stock: 5, IsActive: true})
	store.SetSettings(domsettings.StoreSettings{ShippingFeeCents: 500})
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	m := metrics.New()

	var idem checkoutuc.IdempotencyStore
	if cfg.Redis.URL != "" {
		client, err := idempotency.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		idem = idempotency.NewRedisStore(client, cfg.Redis.IdempotencyTTL)
		log.Info("checkout idempotency backed by redis")
	}

	tokens := security.NewJWTService(cfg.JWTSecret, time.Hour)
	api := httpapi.NewAPI(httpapi.Dependencies{
		AuthService: authuc.NewService(tokens),
		CartService: cartuc.NewService(be.carts, be.products),
		CheckoutService: checkoutuc.NewService(be.carts, be.products, be.orders, be.tx, checkoutuc.Options{
			Currency:    cfg.Currency,
			Idempotency: idem,
			Metrics:     m,
			Logger:      log.Named("checkout"),
		}),
		OrderService:   orderuc.NewService(be.orders, be.tx, m, log.Named("order")),
		ProductService: productuc.NewService(be.products),
		Metrics:        m,
		Health:         be.ping,
		Logger:         log.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if brokers := kafka.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		pub := kafka.NewPublisher(brokers, cfg.Kafka.Topic)
		defer pub.Close()
		r := relay.New(be.outbox, pub, m, log.Named("relay"))
		g.Go(func() error {
			log.Info("outbox relay started", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
			return r.Run(gctx, cfg.Relay.Interval)
		})
	} else {
		log.Warn("no kafka brokers configured, outbox events stay pending")
	}

	return g.Wait()
}
