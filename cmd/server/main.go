package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	carthandler "domainvault/internal/cart/handler"
	cartmetrics "domainvault/internal/cart/metrics"
	cartservice "domainvault/internal/cart/service"
	cartstore "domainvault/internal/cart/store"
	inventoryhandler "domainvault/internal/inventory/handler"
	inventorymetrics "domainvault/internal/inventory/metrics"
	inventoryservice "domainvault/internal/inventory/service"
	inventorystore "domainvault/internal/inventory/store"
	"domainvault/internal/inventory/store/curated"
	jwttoken "domainvault/internal/jwt_token"
	"domainvault/internal/platform/config"
	"domainvault/internal/platform/httpserver"
	"domainvault/internal/platform/kafka"
	"domainvault/internal/platform/kafka/consumer"
	"domainvault/internal/platform/logger"
	"domainvault/internal/platform/metrics"
	platformmw "domainvault/internal/platform/middleware"
	"domainvault/internal/platform/postgres"
	"domainvault/internal/platform/redis"
	purchasehandler "domainvault/internal/purchase/handler"
	purchasemetrics "domainvault/internal/purchase/metrics"
	"domainvault/internal/purchase/reconcile"
	purchaseservice "domainvault/internal/purchase/service"
	purchasestore "domainvault/internal/purchase/store"
	"domainvault/internal/registrar"
	"domainvault/internal/registrar/cache"
	registrarhandler "domainvault/internal/registrar/handler"
	"domainvault/internal/registrar/lookup"
	registrarmetrics "domainvault/internal/registrar/metrics"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/audit/publisher"
	auditmemory "domainvault/pkg/platform/audit/store/memory"
	auditpostgres "domainvault/pkg/platform/audit/store/postgres"
	"domainvault/pkg/platform/circuit"
	"domainvault/pkg/platform/httputil"
	"domainvault/pkg/platform/middleware/admin"
	"domainvault/pkg/platform/middleware/auth"
	"domainvault/pkg/platform/middleware/metadata"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/platform/middleware/requesttime"
	"domainvault/pkg/platform/tx"
	"domainvault/pkg/platform/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence layer chosen by configuration.
type stores struct {
	db       *sql.DB
	curated  curatedStore
	cart     cartservice.Store
	records  purchaseservice.RecordStore
	audit    audit.Store
	ledger   reconcile.Ledger
	txRunner tx.Runner
}

// curatedStore is satisfied by both curated store implementations.
type curatedStore interface {
	inventoryservice.Store
	purchaseservice.CuratedStore
	inventorystore.Creator
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Postgres.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			curated:  curated.NewInMemory(),
			cart:     cartstore.NewInMemory(),
			records:  purchasestore.NewInMemory(),
			audit:    auditmemory.NewInMemoryStore(),
			ledger:   reconcile.NewMemoryLedger(),
			txRunner: tx.NopRunner{},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &stores{
		db:       db,
		curated:  curated.NewPostgres(db),
		cart:     cartstore.NewPostgres(db),
		records:  purchasestore.NewPostgres(db),
		audit:    auditpostgres.New(db),
		ledger:   reconcile.NewPostgresLedger(db),
		txRunner: newPurchaseTx(db),
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}
	curatedDomains := st.curated

	if cfg.Server.CuratedSeedFile != "" {
		domains, err := inventorystore.LoadSeedFile(cfg.Server.CuratedSeedFile, time.Now().UTC())
		if err != nil {
			return err
		}
		added, err := inventorystore.SeedCurated(ctx, curatedDomains, domains)
		if err != nil {
			return err
		}
		log.Info("curated inventory seeded", "file", cfg.Server.CuratedSeedFile, "added", added)
	}

	auditPublisher := publisher.NewPublisher(st.audit,
		publisher.WithAsyncBuffer(cfg.Server.AuditBuffer),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	regMetrics := registrarmetrics.New()
	var lookupCache lookup.Cache
	if redisClient != nil {
		defer redisClient.Close()
		lookupCache = cache.NewRedis(redisClient.Client, cfg.Registrar.CacheTTL)
	} else {
		lookupCache = cache.NewInMemory(cfg.Registrar.CacheTTL)
	}

	breaker := circuit.New("registrar",
		circuit.WithFailureThreshold(cfg.Registrar.BreakerFailures),
		circuit.WithCooldown(cfg.Registrar.BreakerCooldown),
	)
	registrarClient := registrar.New(registrar.Config{
		BaseURL:        cfg.Registrar.BaseURL(),
		UID:            cfg.Registrar.UID,
		Password:       cfg.Registrar.Password,
		Timeout:        cfg.Registrar.Timeout,
		MaxConcurrency: cfg.Registrar.MaxConcurrency,
	},
		registrar.WithBreaker(breaker),
		registrar.WithMetrics(regMetrics),
		registrar.WithLogger(log),
	)
	lookupService := lookup.New(registrarClient,
		lookup.WithCache(lookupCache),
		lookup.WithMetrics(regMetrics),
		lookup.WithLogger(log),
		lookup.WithDefaultTLDs(cfg.Registrar.DefaultTLDs),
	)

	g, gctx := errgroup.WithContext(ctx)

	var (
		queue    reconcile.Queue = reconcile.NewLedgerQueue(st.ledger)
		producer *kafka.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.ReconciliationTopic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
		queue = reconcile.NewKafkaQueue(producer, cfg.Kafka.ReconciliationTopic)

		ledgerConsumer, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			Group:   "domainvault-reconciliation",
			Topics:  []string{cfg.Kafka.ReconciliationTopic},
		}, reconcile.NewTopicHandler(st.ledger, log), log)
		if err != nil {
			return err
		}
		defer ledgerConsumer.Close()
		g.Go(func() error { return ledgerConsumer.Run(gctx) })
	}

	inventoryOpts := []inventoryservice.Option{
		inventoryservice.WithLogger(log),
		inventoryservice.WithAuditPublisher(auditPublisher),
		inventoryservice.WithMetrics(inventorymetrics.New()),
		inventoryservice.WithTTLBounds(cfg.Reservation.DefaultTTL, cfg.Reservation.MaxTTL),
	}
	registry := inventoryservice.NewRegistry(curatedDomains, inventoryOpts...)
	reservations := inventoryservice.NewReservations(curatedDomains, inventoryOpts...)

	purchases := purchaseservice.New(curatedDomains, st.records, registrarClient, queue,
		purchaseservice.WithLogger(log),
		purchaseservice.WithAuditPublisher(auditPublisher),
		purchaseservice.WithMetrics(purchasemetrics.New()),
		purchaseservice.WithTxRunner(st.txRunner),
		purchaseservice.WithLedger(st.ledger),
	)
	carts := cartservice.New(st.cart, lookupService, purchases,
		cartservice.WithLogger(log),
		cartservice.WithAuditPublisher(auditPublisher),
		cartservice.WithMetrics(cartmetrics.New()),
		cartservice.WithItemTTL(cfg.Cart.ItemTTL),
	)

	housekeeping := worker.NewPeriodic(cfg.Reservation.SweepInterval, log,
		worker.Job{Name: "reservation_sweep", Run: reservations.SweepExpired},
		worker.Job{Name: "cart_expiry", Run: carts.ExpireStale},
	)
	g.Go(func() error {
		if err := housekeeping.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	var resolver auth.Resolver = auth.HeaderResolver{}
	if cfg.Identity.JWTSigningKey != "" {
		resolver = jwttoken.NewBearerResolver(jwttoken.NewValidator(cfg.Identity.JWTSigningKey, cfg.Identity.JWTIssuer))
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(platformmw.LatencyMiddleware(metrics.New()))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/health", healthHandler(st.db, redisClient, producer))
	r.Handle("/metrics", promhttp.Handler())

	inventoryHTTP := inventoryhandler.New(registry, reservations, log)
	registrarHTTP := registrarhandler.New(lookupService, log)
	cartHTTP := carthandler.New(carts, log)
	purchaseHTTP := purchasehandler.New(purchases, log)

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.Server.RequestTimeout))
		r.Use(auth.RequireIdentity(resolver, log))
		inventoryHTTP.Register(r)
		registrarHTTP.Register(r)
		cartHTTP.Register(r)
		purchaseHTTP.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(log))
			registrarHTTP.RegisterAdmin(r)
			purchaseHTTP.RegisterAdmin(r)
		})
	})

	srv := httpserver.New(cfg.Server.Addr, r)
	g.Go(func() error {
		log.Info("starting domainvault", "addr", cfg.Server.Addr, "registrar_test_mode", cfg.Registrar.TestMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(db *sql.DB, redisClient *redis.Client, producer *kafka.Producer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		check := func(name string, fn func(context.Context) error) {
			if err := fn(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				return
			}
			resp.Checks[name] = "ok"
		}
		if db != nil {
			check("postgres", db.PingContext)
		}
		if redisClient != nil {
			check("redis", redisClient.Health)
		}
		if producer != nil {
			check("kafka", producer.Health)
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
