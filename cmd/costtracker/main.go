package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"costtracker/internal/amqp"
	"costtracker/internal/cache"
	"costtracker/internal/cli"
	"costtracker/internal/config"
	"costtracker/internal/core"
	apphttp "costtracker/internal/http"
	"costtracker/internal/log"
	"costtracker/internal/services"
	"costtracker/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second

	sessionCacheSize = 1024
	sessionCacheTTL  = 5 * time.Minute
)

func main() {
	cfg, err := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp, os.Stdout)
	if err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.WithComponent(log.ComponentStorage).Info("Database ready",
		log.FieldOperation, log.OpStartup,
		"path", cfg.SQLiteDBPath)

	var publisher services.CostEventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
		logger.Info("Cost events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Cost events disabled - no AMQP_URL provided")
	}

	auth, err := services.NewAuthService(repo, services.DefaultBcryptCost, logger)
	if err != nil {
		return err
	}
	sessionCache := cache.NewLRUCache[core.Session](sessionCacheSize, sessionCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(sessionCache)

	sessions, err := services.NewSessionManager(repo, []byte(cfg.SessionSecret), cfg.Production(),
		services.WithLogger(logger),
		services.WithCache(sessionCache))
	if err != nil {
		return err
	}
	costs := services.NewCostService(repo, publisher, logger)

	srv, err := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Auth:     auth,
		Sessions: sessions,
		Costs:    costs,
		Store:    repo,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting costtracker server",
			"port", cfg.Port,
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweepSessions(gctx, sessions, cfg.SessionSweepInterval, logger)
		return nil
	})

	g.Go(func() error {
		caches.Run(gctx, sessionCacheTTL)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sweepSessions deletes expired sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, sessions *services.SessionManager, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Session sweep failed",
					log.FieldOperation, log.OpSweep,
					log.FieldError, err)
			}
		}
	}
}
