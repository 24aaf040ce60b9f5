package session

import "time"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Store      string `env:"SESSION_STORE" envDefault:"memory"`
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	MaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"720h"`

	// Minimum gap between two sliding-expiry writes of the same session.
	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`
	CleanupInterval         time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	RedisKeyPrefix          string        `env:"SESSION_REDIS_PREFIX" envDefault:"bookkeeper:session:"`
}

func DefaultConfig() Config {
	return Config{
		Store:                   StoreMemory,
		CookieName:              "sid",
		IdleTimeout:             2 * time.Hour,
		MaxLifetime:             30 * 24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
		RedisKeyPrefix:          "bookkeeper:session:",
	}
}

// expiry is the earlier of the idle deadline and the absolute lifetime.
func (c Config) expiry(createdAt, now time.Time) time.Time {
	idle := now.Add(c.IdleTimeout)
	hard := createdAt.Add(c.MaxLifetime)
	if hard.Before(idle) {
		return hard
	}
	return idle
}
