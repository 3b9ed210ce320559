package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	catalogapp "github.com/dmehra2102/campus-cafe/internal/catalog/application"
	catalogrpc "github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/grpc"
	catalogmem "github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/memory"
	notifapp "github.com/dmehra2102/campus-cafe/internal/notification/application"
	notifkafka "github.com/dmehra2102/campus-cafe/internal/notification/infrastructure/kafka"
	notifmem "github.com/dmehra2102/campus-cafe/internal/notification/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/internal/order/application"
	orderhttp "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/kafka"
	ordermem "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/memory"
	orderpg "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/postgres"
	prefapp "github.com/dmehra2102/campus-cafe/internal/preferences/application"
	prefmem "github.com/dmehra2102/campus-cafe/internal/preferences/infrastructure/memory"
	prefpebble "github.com/dmehra2102/campus-cafe/internal/preferences/infrastructure/pebble"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/idempotency"
	"github.com/dmehra2102/campus-cafe/pkg/logging"
	"github.com/dmehra2102/campus-cafe/pkg/metrics"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
	"github.com/dmehra2102/campus-cafe/pkg/shutdown"
	"github.com/dmehra2102/campus-cafe/pkg/tracing"
)

func main() {
	log := logging.New(env("LOG_LEVEL", "info"))

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	httpAddr := env("HTTP_ADDR", ":8080")
	pgURL := env("PG_URL", "")
	kafkaAddr := env("KAFKA_ADDR", "")
	outboxTopic := env("OUTBOX_TOPIC", "order.events")
	redisAddr := env("REDIS_ADDR", "")
	catalogAddr := env("CATALOG_ADDR", "")
	prefsDir := env("PREFS_DIR", "")
	otelEndpoint := env("OTEL_ENDPOINT", "")
	sweepInterval := envDuration("SWEEP_INTERVAL", 2*time.Second)
	readyAfter := envDuration("READY_AFTER", 8*time.Second)

	var stops []shutdown.Func

	tp, err := tracing.Init(ctx, "ordering-service", otelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	reg := metrics.NewRegistry()

	// Catalog
	var src catalogapp.Source
	if catalogAddr != "" {
		client, err := catalogrpc.NewClient(log, catalogAddr)
		if err != nil {
			log.Error("catalog dial failed", "addr", catalogAddr, "err", err)
			os.Exit(1)
		}
		stops = append(stops, func(context.Context) error { return client.Close() })
		src = client
	} else {
		seed, err := catalogmem.Load()
		if err != nil {
			log.Error("catalog load failed", "err", err)
			os.Exit(1)
		}
		src = seed
	}
	catalog := catalogapp.NewService(src)

	// Order history & outbox
	var (
		repo  application.OrderRepository
		store outbox.Store
	)
	if pgURL != "" {
		pool, err := pgxpool.New(ctx, pgURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgRepo := orderpg.NewRepository(log, pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Error("pg schema failed", "err", err)
			os.Exit(1)
		}
		repo, store = pgRepo, orderpg.NewOutboxStore(log, pool)
	} else {
		memRepo := ordermem.NewRepository(outbox.NewMemoryStore())
		repo, store = memRepo, memRepo.Outbox()
		log.Warn("PG_URL not set, order history kept in memory")
	}

	// Preferences
	var prefStore prefapp.Store = prefmem.NewStore()
	if prefsDir != "" {
		pdb, err := prefpebble.Open(prefsDir)
		if err != nil {
			log.Error("preferences store failed", "dir", prefsDir, "err", err)
			os.Exit(1)
		}
		stops = append(stops, func(context.Context) error { return pdb.Close() })
		prefStore = pdb
	}
	prefs := prefapp.NewService(log, prefStore)

	// Idempotency
	var idem *idempotency.Store
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		stops = append(stops, func(context.Context) error { return rdb.Close() })
		idem = idempotency.NewStore(rdb, 10*time.Minute)
	}

	// Notifications
	inbox := notifmem.NewInbox()
	notifier := notifapp.NewService(log, prefs, inbox, clock.Real{})

	// Outbox relay: to kafka when configured, otherwise straight to the notifier.
	var producer outbox.Producer
	if kafkaAddr != "" {
		writer := orderkafka.NewWriter([]string{kafkaAddr})
		stops = append(stops, func(context.Context) error { return writer.Close() })
		producer = writer

		var dedupe notifkafka.Deduper
		if idem != nil {
			dedupe = idem
		}
		reader := notifkafka.NewReader([]string{kafkaAddr}, outboxTopic, "ordering-service-notifier")
		consumer := notifkafka.NewConsumer(log, reader, notifier, dedupe)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("notification consumer stopped", "err", err)
			}
		}()
	} else {
		producer = loopback{notifkafka.NewConsumer(log, nil, notifier, nil)}
	}
	dispatch := outbox.NewDispatcher(log, producer, outboxTopic)
	relay := outbox.NewRelay(log, store, dispatch, "ordering-service-relay",
		outbox.WithObserver(func(ok bool) {
			result := "ok"
			if !ok {
				result = "error"
			}
			reg.OutboxDispatched.WithLabelValues(result).Inc()
		}))

	// Ordering core
	svc := application.NewService(log, application.NewSessionStore(), catalog, repo, clock.Real{}, reg)
	tracker := application.NewTracker(log, svc, sweepInterval, readyAfter)

	opts := []orderhttp.Option{orderhttp.WithMetrics(reg.Handler()), orderhttp.WithInbox(inbox)}
	if idem != nil {
		opts = append(opts, orderhttp.WithIdempotency(idempotency.Middleware(log, idem, orderhttp.SessionScope("place-order"))))
	}
	handler := orderhttp.NewHandler(log, svc, catalog, prefs, opts...)

	// HTTP server
	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()
	go func() {
		if err := tracker.Run(ctx); err != nil {
			log.Error("tracker stopped with error", "err", err)
		}
	}()
	go func() {
		log.Info("http listening", "addr", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	stops = append([]shutdown.Func{srv.Shutdown}, stops...)
	stops = append(stops, tp.Shutdown)
	if err := shutdown.Run(10*time.Second, stops...); err != nil {
		log.Error("shutdown incomplete", "err", err)
	}
	log.Info("ordering-service shutdown complete")
}

// loopback hands relayed events to the notifier in process when no broker is
// configured.
type loopback struct {
	consumer *notifkafka.Consumer
}

func (l loopback) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		l.consumer.Handle(ctx, m)
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
