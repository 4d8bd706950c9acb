// Package config loads settings from an optional YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleDriver Role = "driver"
	RoleRider  Role = "rider"
)

type Config struct {
	Role      Role   `yaml:"-"`
	VehicleID string `yaml:"vehicle_id"`

	Backend struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"backend"`

	ORS struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Profile string `yaml:"profile"`
		Country string `yaml:"country"`
	} `yaml:"ors"`

	Sync struct {
		PollInterval     time.Duration `yaml:"poll_interval"`
		LocationInterval time.Duration `yaml:"location_interval"`
		MaxRetries       int           `yaml:"max_retries"`
		RetryBackoff     time.Duration `yaml:"retry_backoff"`
	} `yaml:"sync"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Cache struct {
		// Driver is one of none, sqlite, postgres, redis.
		Driver      string        `yaml:"driver"`
		SqlitePath  string        `yaml:"sqlite_path"`
		DatabaseURL string        `yaml:"database_url"`
		RedisAddr   string        `yaml:"redis_addr"`
		TTL         time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Simulation struct {
		// Enabled swaps the ORS client for straight-line routes and replays
		// Path as the device location.
		Enabled  bool        `yaml:"enabled"`
		Path     [][]float64 `yaml:"path"`
		SpeedKmh float64     `yaml:"speed_kmh"`
	} `yaml:"simulation"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Defaults returns the baseline for a role before any file or env is applied.
func Defaults(role Role) Config {
	var c Config
	c.Role = role
	c.ORS.BaseURL = "https://api.openrouteservice.org"
	c.ORS.Profile = "driving-car"
	c.ORS.Country = "US"
	c.Sync.PollInterval = 2 * time.Second
	if role == RoleRider {
		c.Sync.PollInterval = time.Second
	}
	c.Sync.LocationInterval = time.Second
	c.Sync.MaxRetries = 2
	c.HTTP.Addr = ":8080"
	c.Cache.Driver = "none"
	c.Cache.SqlitePath = "data/cache.db"
	c.Cache.TTL = 10 * time.Minute
	c.Simulation.SpeedKmh = 30
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}

// Load builds the configuration for role. path may be empty. A missing .env
// file is not an error.
func Load(path string, role Role) (Config, error) {
	c := Defaults(role)

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("load config: parse %q: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	c.VehicleID = Get("VEHICLE_ID", c.VehicleID)
	c.Backend.URL = Get("BACKEND_URL", c.Backend.URL)
	c.Backend.Token = Get("BACKEND_TOKEN", c.Backend.Token)
	c.ORS.APIKey = Get("ORS_API_KEY", c.ORS.APIKey)
	c.ORS.BaseURL = Get("ORS_BASE_URL", c.ORS.BaseURL)
	c.ORS.Profile = Get("ORS_PROFILE", c.ORS.Profile)
	c.HTTP.Addr = Get("HTTP_ADDR", c.HTTP.Addr)
	if port := os.Getenv("PORT"); port != "" {
		c.HTTP.Addr = ":" + port
	}
	c.Cache.Driver = Get("CACHE_DRIVER", c.Cache.Driver)
	c.Cache.SqlitePath = Get("DB_PATH", c.Cache.SqlitePath)
	c.Cache.DatabaseURL = Get("DATABASE_URL", c.Cache.DatabaseURL)
	c.Cache.RedisAddr = Get("REDIS_ADDR", c.Cache.RedisAddr)
	c.NATS.URL = Get("NATS_URL", c.NATS.URL)
	c.Log.Level = Get("LOG_LEVEL", c.Log.Level)
	c.Log.Format = Get("LOG_FORMAT", c.Log.Format)

	var err error
	if c.Sync.PollInterval, err = durationEnv("POLL_INTERVAL", c.Sync.PollInterval); err != nil {
		return err
	}
	if c.Sync.LocationInterval, err = durationEnv("LOCATION_INTERVAL", c.Sync.LocationInterval); err != nil {
		return err
	}
	if c.Sync.RetryBackoff, err = durationEnv("RETRY_BACKOFF", c.Sync.RetryBackoff); err != nil {
		return err
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_RETRIES: %w", err)
		}
		c.Sync.MaxRetries = n
	}
	if v := os.Getenv("SIMULATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SIMULATE: %w", err)
		}
		c.Simulation.Enabled = b
	}
	return nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Backend.URL) == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if c.Role == RoleDriver && strings.TrimSpace(c.VehicleID) == "" {
		errs = append(errs, errors.New("VEHICLE_ID is required"))
	}
	if c.Role == RoleDriver && !c.Simulation.Enabled && strings.TrimSpace(c.ORS.APIKey) == "" {
		errs = append(errs, errors.New("ORS_API_KEY is required unless simulating"))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.Sync.PollInterval))
	}
	if c.Sync.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must be >= 0, got %d", c.Sync.MaxRetries))
	}
	if c.Simulation.Enabled && c.Role == RoleDriver && len(c.Simulation.Path) == 0 {
		errs = append(errs, errors.New("simulation needs a non-empty path"))
	}
	for i, p := range c.Simulation.Path {
		if len(p) != 2 {
			errs = append(errs, fmt.Errorf("simulation path point %d must be [lon, lat]", i))
		}
	}

	switch c.Cache.Driver {
	case "", "none", "sqlite":
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres cache"))
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.Cache.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
