package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/bookkeeper/pkg/clientip"
	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/httpserver"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/ratelimiter"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bookkeeper",
		Short:        "Personal library tracker",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	if err := ensureCookieSecret(&cfg); err != nil {
		return err
	}
	ips, err := clientip.New(cfg.ClientIP)
	if err != nil {
		return err
	}

	a, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", logger.Error(err))
		}
	}()

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}
	sessions, err := a.newSessions(ctx, cfg, cookies)
	if err != nil {
		return err
	}

	limiter, err := ratelimiter.NewBucket(cfg.Login)
	if err != nil {
		return err
	}
	go limiter.Run(ctx, time.Minute)

	router := newRouter(routerDeps{
		log:          log,
		repo:         a.repo,
		cookies:      cookies,
		sessions:     sessions,
		clientIP:     ips,
		loginLimiter: limiter,
		bcryptCost:   cfg.BcryptCost,
		checks:       a.checks,
	})

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return server.Run(ctx, router)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			a, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return a.Close()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
