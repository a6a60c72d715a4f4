package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"userdir/internal/account"
	"userdir/internal/auth"
	"userdir/internal/config"
	"userdir/internal/httpx"
	"userdir/internal/platform/crypto"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	tokens, err := crypto.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	hasher := crypto.NewBcryptHasher(cfg.BcryptCost)

	accountRepository := account.NewPostgresRepo(dbPool, cfg.DBTimeout)
	accountService := account.NewService(accountRepository, hasher)
	authService := auth.NewService(accountService, hasher, tokens)
	gate := auth.NewGate(tokens, accountService)

	if cfg.Admin.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		created, err := accountService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		cancel()
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			log.Printf("bootstrap admin created: email=%s", cfg.Admin.Email)
		}
	}

	loginLimiter := httpx.NewRateLimitMiddleware(cfg.LoginRPS, cfg.LoginBurst).TrustProxies(cfg.TrustedProxies)
	defer loginLimiter.Close()

	handler := newRouter(routerDeps{
		accounts:     account.NewHTTPHandler(accountService),
		auth:         auth.NewHTTPHandler(authService),
		guard:        gate.Middleware(),
		loginLimiter: loginLimiter.Middleware,
		db:           dbPool,
		corsOrigins:  cfg.CORSOrigins,
		maxBodyBytes: cfg.MaxBodyBytes,
		enableHSTS:   cfg.EnableHSTS,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	accounts     *account.HTTPHandler
	auth         *auth.HTTPHandler
	guard        func(http.Handler) http.Handler
	loginLimiter func(http.Handler) http.Handler
	db           pinger
	corsOrigins  []string
	maxBodyBytes int64
	enableHSTS   bool
}

func newRouter(d routerDeps) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Handle("POST /api/auth/login", d.loginLimiter(http.HandlerFunc(d.auth.Login)))
	router.HandleFunc("POST /api/auth/register", d.auth.Register)

	d.accounts.Register(router, d.guard)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(d.enableHSTS),
		httpx.CORSMiddleware(d.corsOrigins),
		httpx.RequestSizeLimitMiddleware(d.maxBodyBytes),
	)
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", config.RedactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}
