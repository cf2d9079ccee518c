package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/unrolled/secure"
	"golang.org/x/sync/errgroup"

	"github.com/Lelo88/pricelist-api-golang/internal/auth"
	"github.com/Lelo88/pricelist-api-golang/internal/config"
	"github.com/Lelo88/pricelist-api-golang/internal/db"
	"github.com/Lelo88/pricelist-api-golang/internal/docs"
	"github.com/Lelo88/pricelist-api-golang/internal/health"
	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
	"github.com/Lelo88/pricelist-api-golang/internal/observability"
	"github.com/Lelo88/pricelist-api-golang/internal/pricelist"
)

const shutdownTimeout = 10 * time.Second

// appPool es lo que la app necesita del pool de Postgres.
// *pgxpool.Pool lo cumple; en tests se usa un fake.
type appPool interface {
	Ping(ctx context.Context) error
	Close()
	BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// appDeps agrupa lo que run necesita del mundo exterior.
type appDeps struct {
	loadConfig func() (config.Config, error)
	newPool    func(ctx context.Context, url string) (appPool, error)
	newRedis   func(ctx context.Context, addr string) (*redis.Client, error)
	serve      func(ctx context.Context, server *http.Server) error
	logOutput  io.Writer
}

// Hooks de main para poder testearlo sin levantar nada real.
var (
	loadConfigFn = config.Load
	newPoolFn    = func(ctx context.Context, url string) (appPool, error) {
		pool, err := db.NewPool(ctx, url)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}
	newRedisFn = auth.NewRedisClient
	serveFn    = serveHTTP
	fatalf     = func(args ...any) {
		slog.Error("fatal", slog.Any("error", fmt.Sprint(args...)))
		os.Exit(1)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := appDeps{
		loadConfig: loadConfigFn,
		newPool:    newPoolFn,
		newRedis:   newRedisFn,
		serve:      serveFn,
		logOutput:  os.Stdout,
	}
	if err := run(ctx, deps); err != nil {
		fatalf(err)
	}
}

func run(ctx context.Context, deps appDeps) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogFormat, cfg.LogLevel, deps.logOutput)

	pool, err := deps.newPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var revocations *auth.RevocationStore
	if cfg.RedisAddr != "" {
		client, err := deps.newRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		revocations = auth.NewRevocationStore(client)
	} else {
		logger.Warn("REDIS_ADDR not set, token revocation disabled")
	}

	if len(cfg.Users) == 0 {
		logger.Warn("AUTH_USERS is empty, nobody can log in")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildRouter(cfg, logger, pool, revocations, observability.NewMetrics()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("addr", server.Addr), slog.String("env", cfg.AppEnv))
	return deps.serve(ctx, server)
}

// serveHTTP sirve hasta que ctx se cancela y después hace shutdown ordenado.
func serveHTTP(ctx context.Context, server *http.Server) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func buildRouter(cfg config.Config, logger *slog.Logger, pool appPool, revocations *auth.RevocationStore, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' https://unpkg.com; img-src 'self' data:",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProduction(),
	})

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	// Middlewares base para trazabilidad y estabilidad.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(requestLogFormatter{logger: logger}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(secureMiddleware.Handler)
	r.Use(middleware.Timeout(requestTimeout))

	// Errores de routing se manejan a nivel router.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusNotFound, "not_found", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	healthHandler := health.New(pool)
	// Sin Redis, revoker queda en nil (interfaz) y no hay chequeo de revocados.
	var revoker auth.Revoker
	if revocations != nil {
		healthHandler.WithCache(revocations)
		revoker = revocations
	}
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	docs.RegisterRoutes(r)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authenticate := auth.Middleware(issuer, revoker, logger)
	authHandler := auth.NewHandler(auth.NewCredentialStore(cfg.Users), issuer, revoker, logger)
	auth.RegisterRoutes(r, authHandler, authenticate, cfg.LoginRateLimit)

	repository := pricelist.NewRepository(pool, cfg.TxTimeout)
	service := pricelist.NewService(repository, logger)
	priceListHandler := pricelist.NewHandler(service, auth.SupplierIDFrom).WithRecorder(metrics)
	pricelist.RegisterRoutes(r, priceListHandler, authenticate)

	return r
}
