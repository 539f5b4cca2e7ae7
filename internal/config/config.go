// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	CORSOrigins    []string      `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// manual refresh calls allowed per user within RefreshWindow
	RefreshLimit  int           `yaml:"refresh_limit"`
	RefreshWindow time.Duration `yaml:"refresh_window"`
}

type DatabaseConfig struct {
	URL           string `yaml:"url" env:"DATABASE_URL"`
	MaxConns      int32  `yaml:"max_conns"`
	MigrationsDir string `yaml:"migrations_dir" env:"MIGRATIONS_DIR"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	BaseURL string        `yaml:"base_url" env:"GATEWAY_BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"GATEWAY_API_KEY"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"` // outbound requests per second
	Burst   int           `yaml:"burst"`
}

type PaymentsConfig struct {
	DemoMode              bool          `yaml:"demo_mode" env:"PAYMENTS_DEMO_MODE"`
	Currency              string        `yaml:"currency"`
	ReconcileInterval     time.Duration `yaml:"reconcile_interval"`
	GraceWindow           time.Duration `yaml:"grace_window"` // minimum age before the first poll
	BatchSize             int           `yaml:"batch_size"`
	Workers               int           `yaml:"workers"`
	PollTimeout           time.Duration `yaml:"poll_timeout"`
	AgentRegistrationFee  int64         `yaml:"agent_registration_fee"`
	BusinessActivationFee int64         `yaml:"business_activation_fee"`
}

type CommissionConfig struct {
	ActivationAmount int64         `yaml:"activation_amount"`
	ReferralAmount   int64         `yaml:"referral_amount"`
	LockTTL          time.Duration `yaml:"lock_ttl"`
}

type SubscriptionConfig struct {
	DurationDays   map[string]int `yaml:"duration_days"` // tier -> days
	ExpiryInterval time.Duration  `yaml:"expiry_interval"`
}

type PromotionConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string `yaml:"topic" env:"KAFKA_TOPIC"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token" env:"TELEGRAM_TOKEN"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

type EmailConfig struct {
	SMTPAddr string   `yaml:"smtp_addr" env:"SMTP_ADDR"` // host:port
	Username string   `yaml:"username" env:"SMTP_USERNAME"`
	Password string   `yaml:"password" env:"SMTP_PASSWORD"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type Config struct {
	Log          LogConfig          `yaml:"log"`
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Payments     PaymentsConfig     `yaml:"payments"`
	Commission   CommissionConfig   `yaml:"commission"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Promotion    PromotionConfig    `yaml:"promotion"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Email        EmailConfig        `yaml:"email"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies .env and environment overrides,
// fills defaults and validates.
func LoadConfig(configPath string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}
	if c.HTTP.RefreshLimit <= 0 {
		c.HTTP.RefreshLimit = 6
	}
	if c.HTTP.RefreshWindow <= 0 {
		c.HTTP.RefreshWindow = time.Minute
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "migrations"
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://harakapay.net"
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 15 * time.Second
	}
	if c.Gateway.RPS <= 0 {
		c.Gateway.RPS = 10
	}
	if c.Gateway.Burst <= 0 {
		c.Gateway.Burst = 5
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "TZS"
	}
	if c.Payments.ReconcileInterval <= 0 {
		c.Payments.ReconcileInterval = 30 * time.Second
	}
	if c.Payments.GraceWindow <= 0 {
		c.Payments.GraceWindow = 10 * time.Second
	}
	if c.Payments.BatchSize <= 0 {
		c.Payments.BatchSize = 200
	}
	if c.Payments.Workers <= 0 {
		c.Payments.Workers = 4
	}
	if c.Payments.PollTimeout <= 0 {
		c.Payments.PollTimeout = c.Gateway.Timeout + 5*time.Second
	}
	if c.Payments.AgentRegistrationFee <= 0 {
		c.Payments.AgentRegistrationFee = 20000
	}
	if c.Payments.BusinessActivationFee <= 0 {
		c.Payments.BusinessActivationFee = 10000
	}
	if c.Commission.ActivationAmount <= 0 {
		c.Commission.ActivationAmount = 5000
	}
	if c.Commission.ReferralAmount <= 0 {
		c.Commission.ReferralAmount = 2000
	}
	if c.Commission.LockTTL <= 0 {
		c.Commission.LockTTL = 10 * time.Second
	}
	if c.Subscription.ExpiryInterval <= 0 {
		c.Subscription.ExpiryInterval = time.Hour
	}
	if c.Promotion.SweepInterval <= 0 {
		c.Promotion.SweepInterval = time.Minute
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "successful_payments"
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret is required")
	}
	if !c.Payments.DemoMode && c.Gateway.APIKey == "" {
		return errors.New("gateway.api_key is required unless payments.demo_mode is set")
	}
	for tier, days := range c.Subscription.DurationDays {
		if days <= 0 {
			return fmt.Errorf("subscription.duration_days.%s must be positive", strings.ToLower(tier))
		}
	}
	return nil
}
