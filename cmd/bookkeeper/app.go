package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/clientip"
	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/environment"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/pg"
	"github.com/dmitrymomot/bookkeeper/pkg/redis"
	"github.com/dmitrymomot/bookkeeper/pkg/requestid"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/pkg/sqlite"
	"github.com/dmitrymomot/bookkeeper/store/postgres"
	sqlitestore "github.com/dmitrymomot/bookkeeper/store/sqlite"
)

// repository is implemented by both storage engines.
type repository interface {
	auth.Storage
	books.Storage
}

func newLogger(cfg appConfig) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(environment.Parse(cfg.Env), cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
}

// app owns every long-lived resource of a running process.
type app struct {
	log     *slog.Logger
	repo    repository
	checks  []func(context.Context) error
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openDatabase connects the configured engine and applies its migrations.
func openDatabase(ctx context.Context, cfg appConfig, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	switch cfg.DBDriver {
	case driverPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closerFunc(func() error { pool.Close(); return nil }))
		if err := postgres.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.repo = postgres.New(pool)
		a.checks = append(a.checks, pg.Healthcheck(pool))

	default:
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if err := sqlitestore.Migrate(ctx, db, log); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.repo = sqlitestore.New(db)
		a.checks = append(a.checks, sqlite.Healthcheck(db))
	}

	log.InfoContext(ctx, "database ready", slog.String("driver", cfg.DBDriver), logger.Component("app"))
	return a, nil
}

// newSessions builds the session manager on the configured store.
func (a *app) newSessions(ctx context.Context, cfg appConfig, cookies *cookie.Manager) (*session.Manager, error) {
	var store session.Store
	switch cfg.Session.Store {
	case session.StoreRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		a.checks = append(a.checks, redis.Healthcheck(client))
		store = session.NewRedisStore(client, cfg.Session.RedisKeyPrefix)
	case session.StoreMemory, "":
		mem := session.NewMemoryStore(cfg.Session.CleanupInterval)
		a.closers = append(a.closers, mem)
		store = mem
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Session.Store)
	}

	return session.New(
		session.NewCookieTransport(cookies, cfg.Session.CookieName),
		session.WithConfig(cfg.Session),
		session.WithStore(store),
	), nil
}
