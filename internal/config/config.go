package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            int           `long:"port" env:"PORT" default:"8080" description:"HTTP listen port"`
	DatabaseURL     string        `long:"database-url" env:"DATABASE_URL" description:"PostgreSQL DSN"`
	RedisURL        string        `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis URL used for presence, token revocation and fan-out"`
	JWTSecret       string        `long:"jwt-secret" env:"JWT_SECRET" description:"HMAC secret for access tokens"`
	TokenTTL        time.Duration `long:"token-ttl" env:"TOKEN_TTL" default:"24h" description:"access token lifetime"`
	PresenceTTL     time.Duration `long:"presence-ttl" env:"PRESENCE_TTL" default:"5m" description:"online marker expiry"`
	Fanout          string        `long:"fanout" env:"FANOUT" default:"redis" choice:"redis" choice:"local" description:"topic fan-out backend"`
	AllowedOrigins  []string      `long:"allow-origin" env:"ALLOWED_ORIGINS" env-delim:"," description:"allowed websocket origins (empty allows any)"`
	EventRate       float64       `long:"event-rate" env:"EVENT_RATE" default:"10" description:"inbound streaming events per second per session"`
	EventBurst      int           `long:"event-burst" env:"EVENT_BURST" default:"20" description:"inbound streaming event burst per session"`
	LogLevel        string        `short:"l" long:"loglevel" env:"LOG_LEVEL" default:"info" description:"set the logging level [debug, info, notice, warning, error, critical]"`
	LogFile         string        `long:"logfile" env:"LOG_FILE" description:"also write logs to this file (rotated)"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"10s" description:"graceful shutdown deadline"`
}

var logLevels = []string{"debug", "info", "notice", "warning", "error", "critical"}

// LoadEnvFiles populates the process environment from .env.local or .env.
// Missing files are ignored.
func LoadEnvFiles() {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}
}

// Parse reads the configuration from args and the environment.
func Parse(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.PresenceTTL <= 0 {
		return errors.New("presence TTL must be positive")
	}
	if c.EventRate <= 0 || c.EventBurst <= 0 {
		return errors.New("event rate and burst must be positive")
	}
	if !validLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if strings.EqualFold(l, level) {
			return true
		}
	}
	return false
}
