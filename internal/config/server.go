package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// DefaultCORSOrigins are the chat frontends allowed when CORS_ORIGINS is unset.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://10.0.2.2:8081",
	"https://fullstack-ai-chat.vercel.app",
	"https://fullstack-ai-chat-dpog.onrender.com",
}

// ServerConfig holds process settings read from the environment.
type ServerConfig struct {
	Host             string        `env:"HOST" default:"0.0.0.0"`
	Port             string        `env:"PORT" default:"7860"`
	Share            bool          `env:"SHARE" default:"false"`
	LogLevel         string        `env:"LOG_LEVEL" default:"info"`
	LogFormat        string        `env:"LOG_FORMAT" default:"json"`
	ModelConfigPath  string        `env:"MODEL_CONFIG" default:"config.json"`
	LogitDiskCache   bool          `env:"LOGIT_DISK_CACHE" default:"false"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	TranslateURL     string        `env:"TRANSLATE_URL"`
	TranslateLang    string        `env:"TRANSLATE_LANGPAIR" default:"tr|en"`
	CORSOrigins      string        `env:"CORS_ORIGINS"`
	RateLimit        float64       `env:"RATE_LIMIT" default:"10"`
	EventTTL         time.Duration `env:"EVENT_TTL" default:"10m"`
	QueueWorkers     int           `env:"QUEUE_CONCURRENCY" default:"1"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
	TranslateTimeout time.Duration `env:"TRANSLATE_TIMEOUT" default:"5s"`
}

// Addr is the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AllowedOrigins splits CORS_ORIGINS, falling back to DefaultCORSOrigins.
func (c *ServerConfig) AllowedOrigins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return append([]string(nil), DefaultCORSOrigins...)
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LoadServer reads .env (if present) and the environment.
func LoadServer() (*ServerConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := validateServer(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	if cfg.RateLimit < 0 {
		return errors.New("RATE_LIMIT must not be negative")
	}
	if cfg.QueueWorkers < 1 {
		return errors.New("QUEUE_CONCURRENCY must be at least 1")
	}
	if cfg.EventTTL <= 0 {
		return errors.New("EVENT_TTL must be positive")
	}
	if cfg.TranslateURL != "" && !strings.Contains(cfg.TranslateLang, "|") {
		return fmt.Errorf("TRANSLATE_LANGPAIR must look like src|dst, got %q", cfg.TranslateLang)
	}
	return nil
}
