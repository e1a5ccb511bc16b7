// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"stashed-tasks/internal/schedule"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
// The mapstructure tags are used by Viper to unmarshal the data; nested keys
// map to environment variables with "." replaced by "_", e.g. qstash.token
// is QSTASH_TOKEN.
type Config struct {
	LogLevel       string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	HttpListenAddr string          `mapstructure:"http_listen_addr" validate:"required"`
	TracingEnabled bool            `mapstructure:"tracing_enabled"`
	QStash         QStashConfig    `mapstructure:"qstash"`
	Webhook        WebhookConfig   `mapstructure:"webhook"`
	Etcd           EtcdConfig      `mapstructure:"etcd"`
	Schedules      SchedulesConfig `mapstructure:"schedules"`
}

// QStashConfig configures the hosted queue client and signature verification.
type QStashConfig struct {
	Token             string        `mapstructure:"token" validate:"required"`
	URL               string        `mapstructure:"url" validate:"omitempty,url"` // development override of the API base URL
	CurrentSigningKey string        `mapstructure:"current_signing_key" validate:"required"`
	NextSigningKey    string        `mapstructure:"next_signing_key"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// WebhookConfig configures the public callback endpoint.
type WebhookConfig struct {
	Domain       string        `mapstructure:"domain" validate:"required"`
	Path         string        `mapstructure:"path" validate:"required"`
	ForceHTTPS   bool          `mapstructure:"force_https"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	ClockSkew    time.Duration `mapstructure:"clock_skew" validate:"gte=0"`
	ResultTTL    time.Duration `mapstructure:"result_ttl" validate:"gte=0"` // 0 keeps results forever
}

// EtcdConfig configures optional persistence. With no endpoints results and
// schedules are kept in memory.
type EtcdConfig struct {
	Endpoints         []string      `mapstructure:"endpoints" validate:"dive,required"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LeaderElectionTTL time.Duration `mapstructure:"leader_election_ttl" validate:"gte=1s"`
}

// SchedulesConfig configures the schedule reconciler.
type SchedulesConfig struct {
	SyncEnabled bool   `mapstructure:"sync_enabled"`
	SyncCron    string `mapstructure:"sync_cron" validate:"omitempty,cron"`
}

// UsesEtcd reports whether persistence is backed by etcd.
func (c *Config) UsesEtcd() bool { return len(c.Etcd.Endpoints) > 0 }

var defaults = map[string]any{
	"log_level":                  "info",
	"http_listen_addr":           ":8080",
	"tracing_enabled":            false,
	"qstash.token":               "",
	"qstash.url":                 "",
	"qstash.current_signing_key": "",
	"qstash.next_signing_key":    "",
	"qstash.timeout":             "15s",
	"webhook.domain":             "",
	"webhook.path":               "/qstash/webhook/",
	"webhook.force_https":        false,
	"webhook.max_body_bytes":     1 << 20,
	"webhook.clock_skew":         "1m",
	"webhook.result_ttl":         "168h",
	"etcd.endpoints":             []string{},
	"etcd.timeout":               "5s",
	"etcd.leader_election_ttl":   "10s",
	"schedules.sync_enabled":     false,
	"schedules.sync_cron":        "*/5 * * * *",
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	return LoadWith(viper.New(), "./configs", ".")
}

// LoadWith loads configuration into v, looking for config.yaml in paths.
func LoadWith(v *viper.Viper, paths ...string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no file: defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its validate tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseCron(fl.Field().String())
		return err == nil
	})

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}
