// Package config holds the viper-backed application configuration. Values
// come from the config file, TABAGENT_* environment variables and CLI flags,
// in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the tabagent process.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Observer ObserverConfig `mapstructure:"observer" yaml:"observer"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Safety   SafetyConfig   `mapstructure:"safety" yaml:"safety"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the chromedp session backing the actuator and
// observer.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	RemoteURL     string        `mapstructure:"remote_url" yaml:"remote_url"`
	Args          []string      `mapstructure:"args" yaml:"args"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	WaitPoll      time.Duration `mapstructure:"wait_poll" yaml:"wait_poll"`
	ScrollDeltaY  int           `mapstructure:"scroll_delta_y" yaml:"scroll_delta_y"`
	NavigateWait  time.Duration `mapstructure:"navigate_wait" yaml:"navigate_wait"`
}

// ObserverConfig bounds the page snapshot.
type ObserverConfig struct {
	MaxCandidates  int `mapstructure:"max_candidates" yaml:"max_candidates"`
	MaxTextLen     int `mapstructure:"max_text_len" yaml:"max_text_len"`
	MaxFieldLen    int `mapstructure:"max_field_len" yaml:"max_field_len"`
	MaxHrefLen     int `mapstructure:"max_href_len" yaml:"max_href_len"`
	AncestorLevels int `mapstructure:"ancestor_levels" yaml:"ancestor_levels"`
	MinBoxSize     int `mapstructure:"min_box_size" yaml:"min_box_size"`
}

// ClientConfig tunes the resilient planning-service client.
type ClientConfig struct {
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	Provider         string        `mapstructure:"provider" yaml:"provider"`
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffInitial   time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial"`
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	HealthTimeout    time.Duration `mapstructure:"health_timeout" yaml:"health_timeout"`
	HealthInterval   time.Duration `mapstructure:"health_interval" yaml:"health_interval"`
}

// SafetyConfig tunes the pre-execution safety gate. Empty slices fall back
// to the built-in rule sets.
type SafetyConfig struct {
	RiskWords        []string `mapstructure:"risk_words" yaml:"risk_words"`
	SensitiveMarkers []string `mapstructure:"sensitive_markers" yaml:"sensitive_markers"`
}

// ServerConfig configures the `tabagent serve` planning backend.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	DefaultProvider string        `mapstructure:"default_provider" yaml:"default_provider"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// New returns a Config populated with defaults, bypassing any file or
// environment lookup. Used by tests and as the fallback when no config file
// exists.
func New() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tabagent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.wait_timeout", "3s")
	v.SetDefault("browser.wait_poll", "100ms")
	v.SetDefault("browser.scroll_delta_y", 900)
	v.SetDefault("browser.navigate_wait", "2s")

	// -- Observer --
	v.SetDefault("observer.max_candidates", 60)
	v.SetDefault("observer.max_text_len", 40000)
	v.SetDefault("observer.max_field_len", 80)
	v.SetDefault("observer.max_href_len", 120)
	v.SetDefault("observer.ancestor_levels", 4)
	v.SetDefault("observer.min_box_size", 2)

	// -- Planning client --
	v.SetDefault("client.endpoint", "http://127.0.0.1:8765")
	v.SetDefault("client.provider", "")
	v.SetDefault("client.attempt_timeout", "30s")
	v.SetDefault("client.max_attempts", 3)
	v.SetDefault("client.backoff_initial", "1s")
	v.SetDefault("client.failure_threshold", 3)
	v.SetDefault("client.cooldown", "30s")
	v.SetDefault("client.health_timeout", "5s")
	v.SetDefault("client.health_interval", "15s")

	// -- Safety --
	v.SetDefault("safety.risk_words", []string{})
	v.SetDefault("safety.sensitive_markers", []string{})

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:8765")
	v.SetDefault("server.default_provider", "rule_based")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_grace", "5s")
}
