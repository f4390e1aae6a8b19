package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	logger = zap.NewNop()
	cfg    Config
)

func main() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger = l
	defer logger.Sync()

	cfg = loadConfig(logger)
	jwtSecret = cfg.JWTSecret
	tokenTTL = cfg.TokenTTL

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err = initDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.RedisAddr != "" {
		rd := newRedisDenylist(cfg.RedisAddr, cfg.RedisPassword)
		if err := rd.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, logout will not revoke tokens", zap.Error(err))
		} else {
			denylist = rd
			logger.Info("token denylist backed by redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Make sure that the media directory exists
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		logger.Fatal("media dir", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(db, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting Saathi backend", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newRouter(db *sql.DB, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(instrument)
	r.Use(withCORS(cfg.CORSOrigins))

	// Health check endpoint for Docker
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Core auth endpoints
	// separate buckets so sign-ups do not spend the login budget
	r.Post("/register", newIPLimiter(cfg.LoginRatePerMin).middleware(registerHandler(db)))
	r.Post("/login", newIPLimiter(cfg.LoginRatePerMin).middleware(loginHandler(db)))
	r.Post("/logout", logoutHandler())

	r.Get("/media/{file}", mediaHandler())

	// Everything below may batch-load profiles
	r.Group(func(r chi.Router) {
		r.Use(DataLoaderMiddleware(db))

		r.Get("/me", meHandler(db))
		r.Put("/me/profile", updateProfileHandler(db))
		r.Post("/me/avatar", uploadAvatarHandler(db))
		r.Delete("/me/avatar", removeAvatarHandler(db))

		r.Get("/profiles", listProfilesHandler(db))
		r.Get("/profiles/{id}", getProfileHandler(db))

		r.Route("/interests/{id}", func(r chi.Router) {
			r.Post("/", expressInterestHandler(db))
			r.Delete("/", removeInterestHandler(db))
			r.Post("/accept", acceptInterestHandler(db))
			r.Post("/reject", rejectInterestHandler(db))
			r.Post("/resend", resendInterestHandler(db))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route_not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "invalid_method")
	})
	return r
}
