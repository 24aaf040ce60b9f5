package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrymomot/bookkeeper/pkg/clientip"
	"github.com/dmitrymomot/bookkeeper/pkg/config"
	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/environment"
	"github.com/dmitrymomot/bookkeeper/pkg/httpserver"
	"github.com/dmitrymomot/bookkeeper/pkg/pg"
	"github.com/dmitrymomot/bookkeeper/pkg/ratelimiter"
	"github.com/dmitrymomot/bookkeeper/pkg/redis"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/pkg/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

type appConfig struct {
	settings

	// Postgres is loaded only when DB_DRIVER=postgres, since PG_CONN_URL
	// is required there.
	Postgres pg.Config
}

type settings struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	Name       string `env:"APP_NAME" envDefault:"bookkeeper"`
	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	HTTP     httpserver.Config
	Cookie   cookie.Config
	Session  session.Config
	SQLite   sqlite.Config
	Redis    redis.Config
	Login    ratelimiter.Config
	ClientIP clientip.Config
}

var errNoCookieSecret = errors.New("COOKIE_SECRETS must be set outside development")

func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg.settings); err != nil {
		return cfg, err
	}

	switch cfg.DBDriver {
	case driverSQLite:
	case driverPostgres:
		if err := config.Load(&cfg.Postgres); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

// ensureCookieSecret fills in a throwaway key in development, where
// sessions need not survive a restart.
func ensureCookieSecret(cfg *appConfig) error {
	if len(cfg.Cookie.Secrets) > 0 {
		return nil
	}
	if environment.Parse(cfg.Env) != environment.Development {
		return errNoCookieSecret
	}
	secret, err := randomSecret()
	if err != nil {
		return err
	}
	cfg.Cookie.Secrets = []string{secret}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
