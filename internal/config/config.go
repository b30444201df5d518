// Package config loads the YAML configuration file and applies environment
// variable overrides for deployment.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Worker       WorkerConfig       `yaml:"worker"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis settings used for conflict caching
// and distributed locks. An empty address disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OrchestratorConfig holds campaign state machine settings. The disable
// flags default to off so conflict detection and auto-pause are active
// unless explicitly turned off.
type OrchestratorConfig struct {
	MaxTouchpoints           int   `yaml:"max_touchpoints"`
	AttemptsPerChannel       int   `yaml:"attempts_per_channel"`
	TouchpointIntervalsDays  []int `yaml:"touchpoint_intervals_days"`
	DisableAutoPause         bool  `yaml:"disable_auto_pause"`
	DisableConflictDetection bool  `yaml:"disable_conflict_detection"`
	ConflictCacheTTLSeconds  int   `yaml:"conflict_cache_ttl_seconds"`
}

// WorkerConfig holds the touchpoint scheduler settings.
type WorkerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	BatchSize           int `yaml:"batch_size"`
}

// DispatchConfig holds per-channel delivery settings. Channels without a
// configured backend fall back to log-only delivery.
type DispatchConfig struct {
	SES            SESConfig `yaml:"ses"`
	SMSGatewayURL  string    `yaml:"sms_gateway_url"`
	CallGatewayURL string    `yaml:"call_gateway_url"`
	GatewayAPIKey  string    `yaml:"gateway_api_key"`
	MaxRetries     int       `yaml:"max_retries"`
}

// SESConfig holds AWS SES credentials for the email channel.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// PollInterval returns the scheduler poll cadence as a duration.
func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// ConflictCacheTTL returns the response cache TTL as a duration.
func (o OrchestratorConfig) ConflictCacheTTL() time.Duration {
	return time.Duration(o.ConflictCacheTTLSeconds) * time.Second
}

// Load reads and parses the configuration file, filling in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Orchestrator.MaxTouchpoints == 0 {
		cfg.Orchestrator.MaxTouchpoints = 7
	}
	if cfg.Orchestrator.AttemptsPerChannel == 0 {
		cfg.Orchestrator.AttemptsPerChannel = 2
	}
	if len(cfg.Orchestrator.TouchpointIntervalsDays) == 0 {
		cfg.Orchestrator.TouchpointIntervalsDays = []int{2, 3, 5, 7, 10, 14}
	}
	if cfg.Orchestrator.ConflictCacheTTLSeconds == 0 {
		cfg.Orchestrator.ConflictCacheTTLSeconds = 60
	}
	if cfg.Worker.PollIntervalSeconds == 0 {
		cfg.Worker.PollIntervalSeconds = 30
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 50
	}
	if cfg.Dispatch.SES.Region == "" {
		cfg.Dispatch.SES.Region = "us-east-1"
	}
	if cfg.Dispatch.MaxRetries == 0 {
		cfg.Dispatch.MaxRetries = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is read first if present, so local development matches
// deployed environments.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Dispatch.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Dispatch.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Dispatch.SES.Region = v
	}
	if v := os.Getenv("OUTREACH_FROM_EMAIL"); v != "" {
		cfg.Dispatch.SES.FromEmail = v
	}
	if v := os.Getenv("SMS_GATEWAY_URL"); v != "" {
		cfg.Dispatch.SMSGatewayURL = v
	}
	if v := os.Getenv("CALL_GATEWAY_URL"); v != "" {
		cfg.Dispatch.CallGatewayURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Dispatch.GatewayAPIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
