package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/kodpazar/backend-api/internal/audit"
	"github.com/kodpazar/backend-api/internal/auth"
	"github.com/kodpazar/backend-api/internal/cart"
	"github.com/kodpazar/backend-api/internal/checkout"
	"github.com/kodpazar/backend-api/internal/common"
	"github.com/kodpazar/backend-api/internal/config"
	"github.com/kodpazar/backend-api/internal/coupon"
	"github.com/kodpazar/backend-api/internal/donation"
	"github.com/kodpazar/backend-api/internal/events"
	"github.com/kodpazar/backend-api/internal/health"
	"github.com/kodpazar/backend-api/internal/ledger"
	"github.com/kodpazar/backend-api/internal/obs"
	"github.com/kodpazar/backend-api/internal/order"
	"github.com/kodpazar/backend-api/internal/payment"
	"github.com/kodpazar/backend-api/internal/project"
	"github.com/kodpazar/backend-api/internal/ratelimit"
	"github.com/kodpazar/backend-api/internal/repo"
	"github.com/kodpazar/backend-api/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kodpazar")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kodpazar-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	queries := repo.New(pool)
	store := repo.NewStore(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	bus := &events.Bus{
		Store:     queries,
		Notifiers: []events.Notifier{events.LogNotifier{Log: logger}},
	}

	settingsSvc := &settings.Service{
		Q:                     queries,
		DefaultCommissionRate: cfg.DefaultCommissionRate,
		DefaultTaxRate:        cfg.TaxRatePercent,
	}
	settingsHandler := &settings.Handler{Svc: settingsSvc}

	projectHandler := &project.Handler{Q: queries}

	cartSvc := &cart.Service{Q: queries}
	cartHandler := &cart.Handler{Svc: cartSvc}

	couponSvc := &coupon.Service{
		Q: queries,
		Policy: coupon.IncentivePolicy{
			StepAmount:  cfg.IncentiveStepAmount,
			StepPercent: cfg.IncentiveStepPercent,
			MaxPercent:  cfg.IncentiveMaxPercent,
			TTL:         cfg.IncentiveCouponTTL,
		},
		Log: logger,
	}
	couponHandler := &coupon.Handler{Svc: couponSvc, Cart: queries}
	couponAdmin := &coupon.AdminHandler{Q: queries}

	checkoutSvc := &checkout.Service{
		DB:         checkout.NewStore(store),
		Settings:   settingsSvc,
		Events:     bus,
		Tasks:      taskClient,
		Log:        logger,
		Currency:   cfg.CurrencyCode,
		PaymentTTL: cfg.OrderPaymentTTL,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	orderSvc := &order.Service{Q: queries, Pool: pool, Events: bus, Log: logger}
	orderHandler := &order.Handler{Q: queries, Svc: orderSvc, Settings: settingsSvc}
	orderAdmin := &order.AdminHandler{Q: queries, Settings: settingsSvc, Events: bus, Log: logger}

	paymentSvc := &payment.Service{
		Q:    queries,
		Pool: pool,
		Providers: map[string]payment.Provider{
			"stripe": payment.Stripe{SecretKey: cfg.StripeSecretKey},
			"iyzico": payment.Iyzico{APIKey: cfg.IyzicoAPIKey, Secret: cfg.IyzicoSecret},
		},
		DefaultProvider: "iyzico",
		Events:          bus,
		Log:             logger,
	}
	paymentHandler := &payment.Handler{Svc: paymentSvc}

	ledgerSvc := &ledger.Service{
		PlatformAccountID:  cfg.PlatformAccountID,
		PlatformCutPercent: cfg.DonationPlatformCut,
	}
	ledgerHandler := &ledger.Handler{Q: queries}

	donationSvc := &donation.Service{
		DB:      donation.NewStore(store),
		Ledger:  ledgerSvc,
		Coupons: couponSvc,
		Events:  bus,
		Log:     logger,
	}
	donationHandler := &donation.Handler{Svc: donationSvc}

	auditHandler := audit.Handler{Store: queries}
	eventsAdmin := &events.AdminHandler{Q: queries}

	globalLimit, err := ratelimit.NewGlobal(redisClient, cfg.RateLimitRPM)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	sensitiveLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:sensitive:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: time.Minute,
			Max:    20,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(globalLimit)

		v.Get("/settings", settingsHandler.Public)
		v.Get("/projects", projectHandler.List)
		v.Get("/projects/{slug}", projectHandler.Detail)
		v.Get("/projects/{projectID}/donations", donationHandler.ListByProject)

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.Authenticate)
			g.With(sensitiveLimit.Middleware, idem.Middleware).Post("/donations", donationHandler.Submit)
		})
		v.With(authMiddleware.RequireAuth, sensitiveLimit.Middleware).Post("/donations/{donationID}/confirm", donationHandler.ConfirmPayment)

		v.Group(func(authed chi.Router) {
			authed.Use(authMiddleware.RequireAuth)

			authed.Route("/cart", func(c chi.Router) {
				c.Get("/", cartHandler.Get)
				c.Delete("/", cartHandler.Clear)
				c.Group(func(g chi.Router) {
					g.Use(idem.Middleware)
					g.Post("/items", cartHandler.AddItem)
					g.Patch("/items/{projectID}", cartHandler.UpdateItem)
					g.Delete("/items/{projectID}", cartHandler.RemoveItem)
				})
			})

			authed.With(sensitiveLimit.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Create)

			authed.Get("/orders", orderHandler.List)
			authed.Get("/orders/by-number/{orderNumber}", orderHandler.GetByNumber)
			authed.Get("/orders/{orderID}", orderHandler.Get)
			authed.Get("/orders/{orderID}/invoice", orderHandler.Invoice)
			authed.Post("/orders/{orderID}/cancel", orderHandler.Cancel)

			authed.Route("/payments", func(p chi.Router) {
				p.With(sensitiveLimit.Middleware, idem.Middleware).Post("/orders/{orderID}", paymentHandler.Process)
				p.Get("/orders/{orderID}", paymentHandler.Status)
			})

			authed.Post("/coupons/validate", couponHandler.Preview)
			authed.Get("/coupons/mine", couponHandler.ListMine)

			authed.Get("/me/transactions", ledgerHandler.ListMine)
			authed.Get("/me/donations", donationHandler.ListMine)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)

			admin.Get("/orders", orderAdmin.List)
			admin.Get("/orders/{orderID}", orderAdmin.Get)
			admin.Patch("/orders/{orderID}/status", orderAdmin.OverrideStatus)
			admin.Post("/orders/{orderID}/complete", orderAdmin.Complete)

			admin.Get("/donations", donationHandler.AdminQueue)
			admin.Post("/donations/{donationID}/approve", donationHandler.AdminApprove)
			admin.Post("/donations/{donationID}/reject", donationHandler.AdminReject)

			admin.Get("/coupons", couponAdmin.List)
			admin.Post("/coupons", couponAdmin.Create)
			admin.Delete("/coupons/{couponID}", couponAdmin.Deactivate)

			admin.Get("/settings", settingsHandler.AdminList)
			admin.Put("/settings", settingsHandler.AdminSet)

			admin.Get("/audit-logs", auditHandler.List)
			admin.Get("/events", eventsAdmin.List)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
