package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "recruitai/docs" // Swagger docs
	"recruitai/internal/api"
	"recruitai/internal/cache"
	"recruitai/internal/config"
	"recruitai/internal/logger"
	"recruitai/internal/storage"
)

// @title RecruitAI API
// @version 1.0
// @description Resume screening relay, candidate pipeline and interview scheduling.

// @contact.name API Support
// @contact.email support@recruitai.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api
// @schemes http https

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("connecting to database")
	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(ctx)
	cancel()
	if err != nil {
		return err
	}
	log.Info("database ready")

	var c cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			c = rc
			log.Info("using redis cache")
		}
	}
	defer c.Close()

	for _, name := range cfg.MissingWebhooks() {
		log.Warn("webhook not configured, dependent endpoints will return 500", zap.String("env", name))
	}

	apiSrv := api.NewAPI(api.Options{Config: cfg, Store: db, Cache: c, Logger: log})
	defer apiSrv.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(apiSrv),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.Tunables.RelayTimeout + time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	log.Info("API server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-idleConnsClosed
	return nil
}
