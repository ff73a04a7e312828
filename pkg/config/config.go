package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// RelayTemplate describes one public relay; Template must contain "{url}".
type RelayTemplate struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"90s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level        string        `yaml:"level" default:"info"`
		Format       string        `yaml:"format" default:"console"`
		Output       string        `yaml:"output" default:"stdout"`
		CollectTopic string        `yaml:"collect_topic"`
		CollectEvery time.Duration `yaml:"collect_every" default:"30s"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Market struct {
		Symbol           string          `yaml:"symbol" default:"QQQM"`
		VolatilitySymbol string          `yaml:"volatility_symbol" default:"^VIX"`
		FallbackEPS      float64         `yaml:"fallback_eps" default:"7.30"`
		QuoteBaseURL     string          `yaml:"quote_base_url" default:"https://query2.finance.yahoo.com"`
		ChartBaseURL     string          `yaml:"chart_base_url" default:"https://query1.finance.yahoo.com"`
		AttemptTimeout   time.Duration   `yaml:"attempt_timeout" default:"5s"`
		Deadline         time.Duration   `yaml:"deadline" default:"60s"`
		Timezone         string          `yaml:"timezone" default:"UTC"`
		Relays           []RelayTemplate `yaml:"relays"`
	} `yaml:"market"`
	Narrative struct {
		APIKey   string        `yaml:"api_key"`
		Model    string        `yaml:"model" default:"gemini-2.5-flash"`
		Timeout  time.Duration `yaml:"timeout" default:"20s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"30m"`
	} `yaml:"narrative"`
	Cache struct {
		Backend  string `yaml:"backend" default:"memory"`
		MaxItems int    `yaml:"max_items" default:"500"`
		Redis    struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"thermo"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		ReportTopic  string        `yaml:"report_topic" default:"thermo.reports"`
		Compression  string        `yaml:"compression" default:"gzip"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Schedule struct {
		Enabled bool   `yaml:"enabled"`
		Spec    string `yaml:"spec" default:"0 22 * * 1-5"`
		Lang    string `yaml:"lang" default:"zh"`
	} `yaml:"schedule"`
	Export struct {
		FontPath     string `yaml:"font_path"`
		DefaultScale int    `yaml:"default_scale" default:"2"`
	} `yaml:"export"`
	RateLimit struct {
		Enabled  bool    `yaml:"enabled" default:"true"`
		Capacity float64 `yaml:"capacity" default:"20"`
		PerSec   float64 `yaml:"per_sec" default:"1"`
	} `yaml:"ratelimit"`
}

// DefaultRelays are the public relays tried for every upstream request.
func DefaultRelays() []RelayTemplate {
	return []RelayTemplate{
		{Name: "allorigins-raw", Template: "https://api.allorigins.win/raw?url={url}"},
		{Name: "corsproxy", Template: "https://corsproxy.io/?{url}"},
		{Name: "codetabs", Template: "https://api.codetabs.com/v1/proxy?quest={url}"},
		{Name: "allorigins-get", Template: "https://api.allorigins.win/get?url={url}"},
	}
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Market.Relays = DefaultRelays()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Market.Relays) == 0 {
		c.Market.Relays = DefaultRelays()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr != nil && os.IsNotExist(statErr) {
		c = Default()
	} else {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnv(c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("THERMO_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Narrative.APIKey = v
	}
	if v := os.Getenv("THERMO_TIMEZONE"); v != "" {
		c.Market.Timezone = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			if n, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = n
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.Symbol == "" || c.Market.VolatilitySymbol == "" {
		return fmt.Errorf("market.symbol and market.volatility_symbol are required")
	}
	if c.Market.FallbackEPS <= 0 {
		return fmt.Errorf("market.fallback_eps must be positive, got %v", c.Market.FallbackEPS)
	}
	if c.Market.AttemptTimeout <= 0 {
		return fmt.Errorf("market.attempt_timeout must be positive")
	}
	if len(c.Market.Relays) == 0 {
		return fmt.Errorf("market.relays cannot be empty")
	}
	for i, r := range c.Market.Relays {
		if !strings.Contains(r.Template, "{url}") {
			return fmt.Errorf("market.relays[%d] (%s) must contain the {url} placeholder", i, r.Name)
		}
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("market.timezone: %w", err)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, layered, got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Export.DefaultScale < 1 || c.Export.DefaultScale > 4 {
		return fmt.Errorf("export.default_scale must be between 1 and 4")
	}
	return nil
}

// Location returns the configured market timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
