package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/expertd/internal/api"
	"github.com/Harshitk-cp/expertd/internal/buildconfig"
	"github.com/Harshitk-cp/expertd/internal/config"
	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	kbStore, closeStore, err := openKnowledgeBaseStore(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open knowledge base store",
			zap.String("backend", config.KnowledgeBaseStore()), zap.Error(err))
	}
	defer closeStore()

	app := api.NewApp(kbStore, store.NewMemorySessionStore(), logger)

	// Start background services
	app.Expirer.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.Stringer("build", buildconfig.Current()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	app.Expirer.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openKnowledgeBaseStore connects the backend selected by KB_STORE. The
// returned func releases it.
func openKnowledgeBaseStore(ctx context.Context, logger *zap.Logger) (domain.KnowledgeBaseStore, func(), error) {
	switch backend := config.KnowledgeBaseStore(); backend {
	case "file":
		s := store.NewFileKnowledgeBaseStore(config.KnowledgeBaseDir())
		if err := s.Ping(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("using file knowledge base store", zap.String("dir", s.Dir()))
		return s, func() {}, nil

	case "postgres":
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for KB_STORE=postgres")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		applied, err := store.Migrate(ctx, pool, config.MigrationsPath())
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("connected to database", zap.Int("migrations", len(applied)))
		return store.NewKnowledgeBaseStore(pool), pool.Close, nil

	case "sqlite":
		s, err := store.OpenSQLiteKnowledgeBaseStore(ctx, config.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite knowledge base store", zap.String("path", config.SQLitePath()))
		return s, func() { _ = s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown KB_STORE %q (want file, postgres or sqlite)", backend)
	}
}
