package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	libconfig "signaltracker/backend/libs/config"
	"signaltracker/backend/services/dashboard-gateway/internal/password"
)

// Account is an operator login defined in configuration. It is only read
// from the YAML file.
type Account struct {
	ID           int64  `yaml:"id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	UserType     string `yaml:"userType"`
	PasswordHash string `yaml:"passwordHash"`
}

// Config defines dashboard gateway configuration.
type Config struct {
	HTTP struct {
		Port                string `yaml:"port" env:"DASHBOARD_HTTP_PORT"`
		WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds" env:"DASHBOARD_HTTP_WRITE_TIMEOUT"`
		SecureCookie        bool   `yaml:"secureCookie" env:"DASHBOARD_SECURE_COOKIE"`
	} `yaml:"http"`
	JWT struct {
		Secret           string `yaml:"secret" env:"DASHBOARD_JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"DASHBOARD_SESSION_TTL_MINUTES"`
	} `yaml:"jwt"`
	Backend struct {
		URL            string `yaml:"url" env:"DASHBOARD_BACKEND_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"DASHBOARD_BACKEND_TIMEOUT"`
	} `yaml:"backend"`
	Redis struct {
		Addr     string `yaml:"addr" env:"DASHBOARD_REDIS_ADDR"`
		Password string `yaml:"password" env:"DASHBOARD_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"DASHBOARD_REDIS_DB"`
	} `yaml:"redis"`
	Database struct {
		DSN string `yaml:"dsn" env:"DASHBOARD_POSTGRES_DSN"`
	} `yaml:"database"`
	Cache struct {
		DashboardSeconds  int `yaml:"dashboardSeconds" env:"DASHBOARD_CACHE_KPI_SECONDS"`
		ThresholdsSeconds int `yaml:"thresholdsSeconds" env:"DASHBOARD_CACHE_THRESHOLDS_SECONDS"`
	} `yaml:"cache"`
	Live struct {
		AllowedOrigins []string `yaml:"allowedOrigins" env:"DASHBOARD_ALLOWED_ORIGINS"`
	} `yaml:"live"`
	Accounts []Account `yaml:"accounts" env:"-"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	return load(libconfig.LoadConfig)
}

func load(fill func(any) error) (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.HTTP.WriteTimeoutSeconds = 60
	cfg.JWT.ExpiresInMinutes = 8 * 60
	cfg.Backend.TimeoutSeconds = 30
	cfg.Redis.Addr = "localhost:6379"
	cfg.Cache.DashboardSeconds = 300
	cfg.Cache.ThresholdsSeconds = 600

	if err := fill(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	if strings.TrimSpace(cfg.Backend.URL) == "" {
		return nil, errors.New("config: backend url is required")
	}
	if u, err := url.Parse(cfg.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("config: backend url %q is not absolute", cfg.Backend.URL)
	}
	for i, acc := range cfg.Accounts {
		if strings.TrimSpace(acc.Email) == "" || acc.PasswordHash == "" {
			return nil, fmt.Errorf("config: account %d needs email and passwordHash", i)
		}
		if err := password.CheckHash(acc.PasswordHash); err != nil {
			return nil, fmt.Errorf("config: account %s: %w", acc.Email, err)
		}
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// WriteTimeout bounds a full response, including the backend round trip.
func (c *Config) WriteTimeout() time.Duration {
	return seconds(c.HTTP.WriteTimeoutSeconds, time.Minute)
}

// HTTPTimeout returns the backend client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return seconds(c.Backend.TimeoutSeconds, 30*time.Second)
}

// SessionTTL is the sliding lifetime of an operator session.
func (c *Config) SessionTTL() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

func (c *Config) DashboardCacheTTL() time.Duration {
	return seconds(c.Cache.DashboardSeconds, 5*time.Minute)
}

func (c *Config) ThresholdsCacheTTL() time.Duration {
	return seconds(c.Cache.ThresholdsSeconds, 10*time.Minute)
}

// OriginAllowed reports whether a websocket Origin may connect. An empty
// allow list accepts every origin.
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.Live.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.Live.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), strings.TrimSuffix(origin, "/")) {
			return true
		}
	}
	return false
}

func seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
