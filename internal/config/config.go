// Package config loads and validates engine configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Poll      PollConfig      `mapstructure:"poll"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PollConfig governs the engine cycle and recheck pacing.
type PollConfig struct {
	IntervalSeconds int     `mapstructure:"interval_seconds"`
	DueAfterSeconds int     `mapstructure:"due_after_seconds"`
	RecheckWorkers  int     `mapstructure:"recheck_workers"`
	StaggerRate     float64 `mapstructure:"stagger_rate"`
}

// CaptureConfig configures the headless rendering subsystem.
type CaptureConfig struct {
	MaxParallel       int    `mapstructure:"max_parallel"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	ScreenshotQuality int    `mapstructure:"screenshot_quality"`
}

// QuotaConfig holds the free-check quota and the upsell price table.
type QuotaConfig struct {
	FreeChecks int               `mapstructure:"free_checks"`
	Tiers      []watch.PriceTier `mapstructure:"tiers"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// StorageConfig selects the artifact store backend. An empty bucket means
// the in-memory store, which only makes sense for development.
type StorageConfig struct {
	GCSBucket     string `mapstructure:"gcs_bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// PubSubConfig holds metadata for change-event publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SMTPConfig configures outbound mail. An empty host disables delivery.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// NotifyConfig holds links embedded in alert messages.
type NotifyConfig struct {
	UnsubscribeBaseURL string `mapstructure:"unsubscribe_base_url"`
}

// ReconcileConfig governs the orphan sweep.
type ReconcileConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("poll.interval_seconds", 300)
	v.SetDefault("poll.due_after_seconds", 300)
	v.SetDefault("poll.recheck_workers", 4)
	v.SetDefault("poll.stagger_rate", 0.1)
	v.SetDefault("capture.max_parallel", 2)
	v.SetDefault("capture.timeout_seconds", 10)
	v.SetDefault("capture.user_agent", "pagewatch-bot/0.1")
	v.SetDefault("capture.screenshot_quality", 80)
	v.SetDefault("quota.free_checks", 14)
	v.SetDefault("quota.tiers", defaultTiers())
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("reconcile.interval_seconds", 900)
}

func defaultTiers() []map[string]any {
	return []map[string]any{
		{"min_remaining": 8, "price": "$5/mo", "payment_link": ""},
		{"min_remaining": 4, "price": "$9/mo", "payment_link": ""},
		{"min_remaining": 1, "price": "$19/mo", "payment_link": ""},
		{"min_remaining": 0, "price": "$29/mo", "payment_link": ""},
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.Poll.RecheckWorkers <= 0 {
		return fmt.Errorf("poll.recheck_workers must be > 0")
	}
	if c.Capture.MaxParallel <= 0 {
		return fmt.Errorf("capture.max_parallel must be > 0")
	}
	if c.Capture.TimeoutSeconds <= 0 {
		return fmt.Errorf("capture.timeout_seconds must be > 0")
	}
	if c.Quota.FreeChecks <= 0 {
		return fmt.Errorf("quota.free_checks must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from must be set when smtp.host is set")
	}
	return nil
}

// PollInterval converts the cycle sleep into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// DueAfter converts the recheck eligibility age into a duration.
func (c Config) DueAfter() time.Duration {
	return time.Duration(c.Poll.DueAfterSeconds) * time.Second
}

// CaptureTimeout converts the per-capture budget into a duration.
func (c Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutSeconds) * time.Second
}

// ReconcileInterval converts the sweep cadence into a duration.
func (c Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reconcile.IntervalSeconds) * time.Second
}
