package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"mewego-bot/internal/config"
	"mewego-bot/internal/logger"
	"mewego-bot/internal/repository"
	"mewego-bot/internal/server"
	"mewego-bot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	l, err := logger.New(cfg)
	if err != nil {
		log.Fatal("failed to init logger", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, l)
	stop()
	if err != nil {
		l.Fatal("shutdown with error", "err", err)
	}
	l.Info("shutdown complete")
}

// run closes everything it opens before returning.
func run(ctx context.Context, cfg *config.Config, l *log.Logger) error {
	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	l.Info("connected to database")

	states, closeStates, err := newStateStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer closeStates()

	bot, err := telegram.NewBot(cfg, repo, states, l)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	srv := server.NewServer(repo, cfg.Port, l)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return bot.Start(ctx) })
	return g.Wait()
}

// newStateStore uses Redis when REDIS_URL is set so pending dialogs survive
// restarts, and an in-process map otherwise.
func newStateStore(ctx context.Context, cfg *config.Config, l *log.Logger) (telegram.StateStore, func(), error) {
	if cfg.RedisURL == "" {
		l.Info("conversation state in memory")
		return telegram.NewMemoryStateStore(), func() {}, nil
	}

	store, err := telegram.NewRedisStateStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	l.Info("conversation state in redis")
	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("close redis", "err", err)
		}
	}, nil
}
