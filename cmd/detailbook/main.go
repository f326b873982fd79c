package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rk-sharma/detailbook/internal/access"
	"github.com/rk-sharma/detailbook/internal/availability"
	"github.com/rk-sharma/detailbook/internal/customer"
	"github.com/rk-sharma/detailbook/internal/handlers"
	"github.com/rk-sharma/detailbook/internal/identity"
	"github.com/rk-sharma/detailbook/internal/lifecycle"
	"github.com/rk-sharma/detailbook/internal/notify"
	"github.com/rk-sharma/detailbook/internal/outbox"
	"github.com/rk-sharma/detailbook/internal/storage"
	"github.com/rk-sharma/detailbook/libs/config"
	"github.com/rk-sharma/detailbook/libs/db"
	"github.com/rk-sharma/detailbook/libs/httpx"
	"github.com/rk-sharma/detailbook/libs/kafkax"
	otelx "github.com/rk-sharma/detailbook/libs/otel"
	"github.com/rk-sharma/detailbook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func buildNotifier(logger *slog.Logger) *notify.Dispatcher {
	var sms notify.Sender
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		sms = notify.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	} else {
		logger.Warn("SMS_WEBHOOK_URL not set; sms notifications are no-ops")
		sms = notify.NewNoopSender("noop-sms")
	}

	var email notify.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		email = notify.NewSMTPSender(host, config.String("SMTP_PORT", "25"), config.String("SMTP_FROM", ""))
	} else {
		logger.Warn("SMTP_HOST not set; email notifications are no-ops")
		email = notify.NewNoopSender("noop-email")
	}
	return notify.NewDispatcher(sms, email)
}

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "detailbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	tenants := storage.NewTenantRepository(pool)
	customers := storage.NewCustomerRepository(pool)
	appts := storage.NewAppointmentRepository(pool)
	services := storage.NewServiceRepository(pool)
	subs := storage.NewSubscriptionRepository(pool)
	notes := storage.NewNotificationRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	ids := identity.NewResolver(tenants)
	avail := availability.NewEngine(appts)
	gate := access.NewGate(subs, logger)
	notifier := buildNotifier(logger)

	svc := lifecycle.NewService(lifecycle.Deps{
		Appointments:  appts,
		Customers:     customers,
		Resolver:      customer.NewResolver(customers),
		Tenants:       ids,
		Slots:         avail,
		Catalog:       services,
		Gate:          gate,
		Outbox:        outboxRepo,
		Notifications: notes,
		Notifier:      notifier,
		Logger:        logger,
	})

	h := handlers.New(svc, avail, ids, appts, logger)
	prov := handlers.NewProvisioningHandler(tenants, services, ids, logger)
	stripeHandler := handlers.NewStripeWebhookHandler(subs,
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		config.Duration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	// Public booking surface is rate limited per client IP when Redis is
	// configured; without it the limiter is skipped entirely.
	publicLimit := func(next http.Handler) http.Handler { return next }
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("PUBLIC_RATE_LIMIT", 60),
			config.Duration("PUBLIC_RATE_WINDOW", time.Minute),
			"public")
		publicLimit = limiter.Middleware(logger, true)
	} else {
		logger.Warn("REDIS_ADDR not set; public rate limiting disabled")
	}

	mux.Handle("GET /api/v1/public/{tenantRef}/slots", publicLimit(http.HandlerFunc(h.Slots)))
	mux.Handle("GET /api/v1/public/{tenantRef}/services", publicLimit(http.HandlerFunc(prov.ListServices)))
	mux.Handle("POST /api/v1/public/{tenantRef}/book", publicLimit(http.HandlerFunc(h.Book)))

	mux.HandleFunc("POST /api/v1/tenants", prov.CreateTenant)
	mux.HandleFunc("POST /api/v1/services", prov.CreateService)

	mux.HandleFunc("GET /api/v1/appointments", h.List)
	mux.HandleFunc("POST /api/v1/appointments/{id}/confirm", h.Confirm)
	mux.HandleFunc("POST /api/v1/appointments/{id}/reschedule", h.Reschedule)
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", h.Cancel)
	mux.HandleFunc("POST /api/v1/appointments/{id}/start", h.Start)
	mux.HandleFunc("POST /api/v1/appointments/{id}/complete", h.Complete)
	mux.HandleFunc("POST /api/v1/appointments/{id}/no-show", h.NoShow)
	mux.HandleFunc("POST /api/v1/appointments/{id}/remind", h.Remind)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.Purge)

	mux.Handle("POST /api/v1/webhooks/stripe", stripeHandler)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 30*time.Second)),
		httpx.WithBodyLimit(1 << 20),
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Tenant-Id", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "detailbook")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
