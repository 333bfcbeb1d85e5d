package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange    ExchangeConfig    `yaml:"exchange"`
	Builder     BuilderConfig     `yaml:"builder"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Server      ServerConfig      `yaml:"server"`
}

type ExchangeConfig struct {
	RESTEndpoint string        `yaml:"rest_endpoint"`
	WSEndpoint   string        `yaml:"ws_endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MidsStream   bool          `yaml:"mids_stream"`
	MidsMaxAge   time.Duration `yaml:"mids_max_age"`
	MaxFillPages int           `yaml:"max_fill_pages"`
}

type BuilderConfig struct {
	// Address is the builder whose fills count for builder-only queries.
	Address string `yaml:"address"`
	// MaxStartCapital caps the return denominator; 0 means uncapped.
	MaxStartCapital float64 `yaml:"max_start_capital"`
}

type LeaderboardConfig struct {
	Concurrency  int `yaml:"concurrency"`
	DefaultLimit int `yaml:"default_limit"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty logs to stderr
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func Default() Config {
	return Config{
		Exchange: ExchangeConfig{
			RESTEndpoint: "https://api.hyperliquid.xyz",
			WSEndpoint:   "wss://api.hyperliquid.xyz/ws",
			Timeout:      10 * time.Second,
			MidsMaxAge:   5 * time.Second,
			MaxFillPages: 50,
		},
		Leaderboard: LeaderboardConfig{
			Concurrency:  8,
			DefaultLimit: 100,
		},
		Storage: StorageConfig{DBPath: "hyper_pnl.db"},
		Logging: LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("HYPER_PNL_BUILDER")); v != "" {
		c.Builder.Address = v
	}
	if v := strings.TrimSpace(os.Getenv("HYPER_PNL_DB_PATH")); v != "" {
		c.Storage.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("HYPER_PNL_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("HYPER_PNL_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error

	if u, err := url.Parse(c.Exchange.RESTEndpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("exchange.rest_endpoint %q is not an http(s) URL", c.Exchange.RESTEndpoint))
	}
	if c.Exchange.MidsStream {
		if u, err := url.Parse(c.Exchange.WSEndpoint); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = multierr.Append(errs, fmt.Errorf("exchange.ws_endpoint %q is not a ws(s) URL", c.Exchange.WSEndpoint))
		}
	}
	if c.Exchange.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("exchange.timeout must be positive"))
	}
	if c.Exchange.MaxFillPages <= 0 {
		errs = multierr.Append(errs, errors.New("exchange.max_fill_pages must be positive"))
	}
	if c.Builder.Address != "" && !addressPattern.MatchString(c.Builder.Address) {
		errs = multierr.Append(errs, fmt.Errorf("builder.address %q is not a 0x-prefixed 20-byte hex address", c.Builder.Address))
	}
	if c.Builder.MaxStartCapital < 0 {
		errs = multierr.Append(errs, errors.New("builder.max_start_capital must not be negative"))
	}
	if c.Leaderboard.Concurrency < 1 {
		errs = multierr.Append(errs, errors.New("leaderboard.concurrency must be at least 1"))
	}
	if c.Leaderboard.DefaultLimit < 1 {
		errs = multierr.Append(errs, errors.New("leaderboard.default_limit must be at least 1"))
	}
	if c.Storage.DBPath == "" {
		errs = multierr.Append(errs, errors.New("storage.db_path is required"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errs
}

// MaxStartCapital returns the configured cap, or nil when uncapped.
func (c *Config) MaxStartCapital() *float64 {
	if c.Builder.MaxStartCapital <= 0 {
		return nil
	}
	v := c.Builder.MaxStartCapital
	return &v
}
