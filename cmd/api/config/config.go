package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const envPrefix = "CHRONIC"

type Config struct {
	conf.Version
	Web       WebConfig
	DB        DBConfig
	Auth      AuthConfig
	Realtime  RealtimeConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type WebConfig struct {
	Addr            string        `conf:"default::3000,help:HTTP listen address"`
	AllowedOrigins  []string      `conf:"default:http://localhost:3000;http://127.0.0.1:3000;http://localhost:5173,help:CORS origins"`
	ReadTimeout     time.Duration `conf:"default:10s"`
	WriteTimeout    time.Duration `conf:"default:30s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DBConfig struct {
	Driver       string `conf:"default:postgres,help:postgres or sqlite"`
	DSN          string `conf:"default:host=localhost user=postgres password=postgres dbname=chronic port=5432 sslmode=disable TimeZone=UTC,mask"`
	MaxOpenConns int    `conf:"default:20"`
	MaxIdleConns int    `conf:"default:5"`
}

type AuthConfig struct {
	JWTSecret      string        `conf:"mask,help:HMAC secret for access tokens"`
	AccessTokenTTL time.Duration `conf:"default:24h"`
	CookieName     string        `conf:"default:access_token"`
	CookieSecure   bool          `conf:"default:false"`
}

type RealtimeConfig struct {
	Relay        string        `conf:"default:none,help:none, redis or nats"`
	RedisURL     string        `conf:"default:redis://localhost:6379/0,mask"`
	NATSURL      string        `conf:"default:nats://localhost:4222"`
	QueueSize    int           `conf:"default:1024"`
	SendTimeout  time.Duration `conf:"default:5s,help:per-recipient send timeout"`
	PingInterval time.Duration `conf:"default:30s"`
}

type LogConfig struct {
	Level  string `conf:"default:info"`
	Pretty bool   `conf:"default:false"`
}

type TelemetryConfig struct {
	Endpoint    string `conf:"help:OTLP gRPC endpoint; tracing is disabled when empty"`
	ServiceName string `conf:"default:chronic-api"`
}

// Load reads an optional .env file and parses CHRONIC_* environment variables
// into a Config. The returned string is the usage text when help was asked for.
func Load() (*Config, string, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg := &Config{}
	cfg.Version.Desc = "Chronic task management API"
	help, err := conf.Parse(envPrefix, cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return nil, help, err
		}
		return nil, "", fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("CHRONIC_AUTH_JWT_SECRET is not set in the environment")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	switch c.Realtime.Relay {
	case "none", "redis", "nats":
	default:
		return fmt.Errorf("unsupported realtime relay %q", c.Realtime.Relay)
	}
	return nil
}
