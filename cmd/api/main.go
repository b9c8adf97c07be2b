package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-aurum/internal/analytics"
	"github.com/noah-isme/backend-aurum/internal/app"
	"github.com/noah-isme/backend-aurum/internal/auth"
	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/common"
	"github.com/noah-isme/backend-aurum/internal/config"
	"github.com/noah-isme/backend-aurum/internal/events"
	"github.com/noah-isme/backend-aurum/internal/health"
	"github.com/noah-isme/backend-aurum/internal/invoice"
	"github.com/noah-isme/backend-aurum/internal/notify"
	"github.com/noah-isme/backend-aurum/internal/obs"
	"github.com/noah-isme/backend-aurum/internal/ratelimit"
	"github.com/noah-isme/backend-aurum/internal/rates"
	"github.com/noah-isme/backend-aurum/internal/resilience"
	"github.com/noah-isme/backend-aurum/internal/sale"
	"github.com/noah-isme/backend-aurum/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "aurum")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: "aurum-api",
			Endpoint:    envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Environment: cfg.AppEnv,
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool := mustInitDatabase(initCtx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(initCtx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	if err := app.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	taskClient, err := app.NewTaskClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task client")
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	queueBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("task_queue").
		WithLogger(logger)

	mailer := common.NopEmailSender{}
	bus := &events.Bus{
		Store: events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{
			notify.Enqueuer{Client: taskClient, Breaker: queueBreaker, Logger: logger},
			notify.ReconcileNotifier{Mail: mailer, OwnerEmail: cfg.OwnerEmail, Enabled: cfg.OwnerEmail != ""},
		},
	}

	catalogStore := &catalog.Store{Pool: pool}
	catalogSvc := &catalog.Service{
		Store:         catalogStore,
		Cache:         catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultGSTBps: cfg.DefaultLineGSTBps,
	}
	catalogHandler := &catalog.Handler{
		Svc:            catalogSvc,
		Validate:       app.NewValidator(),
		AlertThreshold: cfg.StockAlertThreshold,
	}
	feed := &catalog.Feed{Source: catalogStore, Interval: cfg.CatalogPollInterval, Logger: &logger}
	go feed.Run(ctx)
	go catalogSvc.FollowFeed(ctx, feed)

	ratesStore := &rates.Store{Pool: pool}
	ratesHandler := &rates.Handler{Store: ratesStore}

	snapshots := cart.SnapshotStore{R: redisClient, TTL: cfg.SessionTTL}
	cartSvc := &cart.Service{
		Products:   catalogSvc,
		Rates:      ratesStore,
		Snapshots:  snapshots,
		CartGSTBps: cfg.CartGSTBps,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}

	invoiceStore := &invoice.Store{Pool: pool}
	invoiceHandler := &invoice.Handler{Store: invoiceStore}

	saleSvc := &sale.Service{
		Counter:     invoiceStore,
		Invoices:    invoiceStore,
		Inventory:   catalogStore,
		Snapshots:   snapshots,
		Events:      bus,
		CounterKey:  cfg.InvoiceCounterKey,
		CounterSeed: cfg.InvoiceCounterSeed,
		Retry: resilience.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Base:        cfg.RetryBase,
			JitterPct:   float64(cfg.RetryJitterPct),
		},
		Logger: logger,
	}
	saleHandler := &sale.Handler{Sessions: cartSvc, Svc: saleSvc}

	authStore := &auth.Store{Pool: pool}
	authSvc, err := auth.NewService(auth.Config{
		Store:           authStore,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:           authSvc,
		AccessCookieName:  "aurum_access",
		RefreshCookieName: "aurum_refresh",
		CookieSecure:      cfg.AppEnv == "production",
	}
	authMiddleware := auth.Middleware{Service: authSvc, AccessCookie: "aurum_access"}

	analyticsSvc := &analytics.Service{
		Q:            &analytics.Store{Pool: pool},
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsDefaultRange,
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	loginLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:login:"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return clientKey(r) },
			Window: cfg.LoginRateWindow,
			Max:    cfg.LoginRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("login rate limiter") },
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
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cart.SessionHeader},
		ExposedHeaders:   []string{cart.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if limiterStore, err := app.NewLimiterStore(redisClient); err != nil {
		logger.Error().Err(err).Msg("initialise global rate limiter")
	} else {
		global := app.NewGlobalLimiter(limiterStore, limiter.Rate{
			Period: cfg.GlobalRatePeriod,
			Limit:  cfg.GlobalRateMax,
		})
		r.Use(limitermw.NewMiddleware(global).Handler)
	}

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: health.Probes{Pool: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/me", authHandler.Me)
				protected.With(requireRole(authStore, auth.RoleOwner)).Post("/register", authHandler.Register)
			})
		})

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)

			g.Get("/products", catalogHandler.Products)
			g.Post("/products", catalogHandler.Register)
			g.Get("/products/barcode/{barcode}", catalogHandler.ByBarcode)
			g.Get("/products/alerts", catalogHandler.Alerts)

			g.Get("/rates", ratesHandler.Get)
			g.With(requireRole(authStore, auth.RoleOwner)).Put("/rates", ratesHandler.Put)

			g.Group(func(c chi.Router) {
				c.Use(cart.SessionMiddleware)
				c.Get("/cart", cartHandler.Get)
				c.Post("/cart/lines", cartHandler.AddLine)
				c.Delete("/cart/lines/{id}", cartHandler.RemoveLine)
				c.Put("/cart/summary", cartHandler.UpdateSummary)
				c.Post("/sales/commit", saleHandler.Commit)
			})

			g.Get("/invoices", invoiceHandler.List)
			g.Get("/invoices/{number}", invoiceHandler.Get)

			g.Route("/analytics", func(an chi.Router) {
				an.Use(requireRole(authStore, auth.RoleOwner))
				an.Get("/sales", analyticsHandler.Sales)
				an.Get("/top-products", analyticsHandler.TopProducts)
			})
		})
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = otelhttp.NewHandler(handler, "aurum-api")
	}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "aurum-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func requireRole(store *auth.Store, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := common.UserID(r.Context())
			if !ok {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			user, err := store.GetUserByID(r.Context(), id)
			if err != nil || user.Role != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if colon := strings.LastIndex(host, ":"); colon >= 0 {
		host = host[:colon]
	}
	return host
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
