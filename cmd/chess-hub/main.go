package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-live-chess/internal/config"
	"github.com/park285/cheese-live-chess/internal/gamestore"
	"github.com/park285/cheese-live-chess/internal/identity"
	"github.com/park285/cheese-live-chess/internal/live"
	"github.com/park285/cheese-live-chess/internal/msgcat"
	"github.com/park285/cheese-live-chess/internal/obslog"
)

func main() {
	// .env가 없어도 무시
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := obslog.Init(obslog.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Console: cfg.Log.Console,
		ToFile:  cfg.Log.ToFile,
		File:    cfg.Log.File,
		Caller:  cfg.Log.Caller,
	})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("chess_hub_exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *appcfg.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	var closers []io.Closer
	defer func() {
		if err := closeAll(closers); err != nil {
			logger.Warn("chess_hub_close", zap.Error(err))
		}
	}()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = gamestore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, db)
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = gamestore.Migrate(mctx, db)
		cancel()
		if err != nil {
			return err
		}
	}

	games, err := openStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	closers = append([]io.Closer{games}, closers...)

	ids, err := buildResolver(ctx, cfg, db)
	if err != nil {
		return err
	}

	var archive gamestore.Archiver = gamestore.NewMemoryArchive()
	if db != nil {
		archive = gamestore.NewPostgresArchive(db, "Live Chess", cfg.PGNSite)
	}

	hub := live.NewHub(games, ids, live.Options{
		Archive:        archive,
		Messages:       msgs,
		Logger:         logger,
		CommandTimeout: cfg.CommandTimeout,
	})
	router := live.NewRouter(hub, live.WSOptions{
		OriginPatterns: cfg.WSOrigins,
		ReadLimit:      cfg.WSReadLimit,
		WriteTimeout:   cfg.WSWriteTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("chess_hub_listen",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
			zap.Bool("archive_db", db != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("chess_hub_shutdown", zap.Int("connections", hub.Registry().Len()))
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *appcfg.AppConfig, db *sql.DB) (gamestore.Repository, error) {
	switch cfg.StoreBackend {
	case appcfg.BackendRedis:
		s, err := gamestore.NewRedisStore(cfg.RedisURL, cfg.GameTTL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return s, nil
	case appcfg.BackendPostgres:
		return gamestore.NewPostgresStore(db), nil
	}
	s := gamestore.NewMemoryStore()
	rec, err := s.Create(ctx, "local")
	if err != nil {
		return nil, err
	}
	obslog.L().Info("chess_hub_seed_game", zap.Int64("game_id", rec.ID))
	return s, nil
}

// buildResolver chains every configured identity source, static tokens first.
func buildResolver(ctx context.Context, cfg *appcfg.AppConfig, db *sql.DB) (identity.Resolver, error) {
	var chain identity.Chain
	if cfg.IdentityStaticTokens != "" {
		chain = append(chain, identity.NewStaticResolver(identity.ParseStaticTokens(cfg.IdentityStaticTokens)))
	}
	if cfg.IdentityURL != "" {
		opts := []identity.Option{identity.WithTimeout(cfg.IdentityTimeout)}
		if cfg.IdentityServiceToken != "" {
			opts = append(opts, identity.WithServiceToken(cfg.IdentityServiceToken))
		}
		chain = append(chain, identity.NewHTTPResolver(cfg.IdentityURL, opts...))
	}
	if db != nil {
		pr := identity.NewPostgresResolver(db)
		if err := pr.Migrate(ctx); err != nil {
			return nil, err
		}
		chain = append(chain, pr)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func closeAll(closers []io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
