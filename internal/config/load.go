package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Network  NetworkConfig  `json:"network"`
	Cache    CacheConfig    `json:"cache"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type BotConfig struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

type NetworkConfig struct {
	HTTPPoolSize     int    `json:"http_pool_size"`
	WorkerCount      int    `json:"worker_count"`
	QueueSize        int    `json:"queue_size"`
	APIBaseURL       string `json:"api_base_url"`
	RequestTimeoutMS int    `json:"request_timeout_ms"`
	Warmup           bool   `json:"warmup"`
}

type CacheConfig struct {
	// RedisURL enables the snapshot mirror when set.
	RedisURL           string `json:"redis_url"`
	SnapshotTTLSeconds int    `json:"snapshot_ttl_seconds"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	// Path "" logs to the console.
	Path string `json:"path"`
}

type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`
	Addr              string `json:"addr"`
	HostSampleSeconds int    `json:"host_sample_seconds"`
}

func (n NetworkConfig) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutMS) * time.Millisecond
}

func (c CacheConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

func (m MetricsConfig) HostSampleInterval() time.Duration {
	return time.Duration(m.HostSampleSeconds) * time.Second
}

var GlobalConfig *Config

// Load reads a JSON config file over the defaults, then applies .env and
// environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// LoadOrDefault falls back to defaults plus environment when the file is
// missing or invalid.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnv(cfg)
		GlobalConfig = cfg
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		cfg.Bot.ClientID = clientID
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Cache.RedisURL = redisURL
	}
	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		cfg.Network.APIBaseURL = baseURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if workers, err := strconv.Atoi(os.Getenv("WORKER_COUNT")); err == nil {
		cfg.Network.WorkerCount = workers
	}
}

func (c *Config) Validate() error {
	if c.Network.HTTPPoolSize <= 0 {
		return fmt.Errorf("network.http_pool_size must be > 0")
	}
	if c.Network.WorkerCount <= 0 {
		return fmt.Errorf("network.worker_count must be > 0")
	}
	if c.Network.QueueSize <= 0 {
		return fmt.Errorf("network.queue_size must be > 0")
	}
	if c.Network.APIBaseURL == "" {
		return fmt.Errorf("network.api_base_url is required")
	}
	if c.Network.RequestTimeoutMS <= 0 {
		return fmt.Errorf("network.request_timeout_ms must be > 0")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{},
		Network: NetworkConfig{
			HTTPPoolSize:     4,
			WorkerCount:      4,
			QueueSize:        1024,
			APIBaseURL:       "https://discord.com/api/v10",
			RequestTimeoutMS: 2000,
			Warmup:           true,
		},
		Cache: CacheConfig{
			SnapshotTTLSeconds: 86400,
		},
		Database: DatabaseConfig{
			Path: "guildevents.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			Addr:              ":9105",
			HostSampleSeconds: 30,
		},
	}
}
