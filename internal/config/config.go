// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Interface is the read-only view of the application configuration handed to
// every component. There are no setters: a run sees exactly the settings that
// were resolved at startup.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Timing() TimingConfig
	Form() FormConfig
	Server() ServerConfig
	Runner() RunnerConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	TimingCfg  TimingConfig  `mapstructure:"timing" yaml:"timing"`
	FormCfg    FormConfig    `mapstructure:"form" yaml:"form"`
	ServerCfg  ServerConfig  `mapstructure:"server" yaml:"server"`
	RunnerCfg  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg.clone() }
func (c *Config) Timing() TimingConfig   { return c.TimingCfg }
func (c *Config) Form() FormConfig       { return c.FormCfg.Clone() }
func (c *Config) Server() ServerConfig   { return c.ServerCfg }
func (c *Config) Runner() RunnerConfig   { return c.RunnerCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium instance launched per run.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	NoSandbox       bool           `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	DisableDevShm   bool           `mapstructure:"disable_dev_shm" yaml:"disable_dev_shm"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Debug           bool           `mapstructure:"debug" yaml:"debug"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

func (b BrowserConfig) clone() BrowserConfig {
	out := b
	out.Args = append([]string(nil), b.Args...)
	if b.Viewport != nil {
		out.Viewport = make(map[string]int, len(b.Viewport))
		for k, v := range b.Viewport {
			out.Viewport[k] = v
		}
	}
	return out
}

// TimingConfig bounds every wait a run performs. Waits are condition based;
// these values are upper limits, not fixed sleeps, except FinalSettle.
type TimingConfig struct {
	NavigationSettle time.Duration `mapstructure:"navigation_settle" yaml:"navigation_settle"`
	InteractionWait  time.Duration `mapstructure:"interaction_wait" yaml:"interaction_wait"`
	ConsentWait      time.Duration `mapstructure:"consent_wait" yaml:"consent_wait"`
	FinalSettle      time.Duration `mapstructure:"final_settle" yaml:"final_settle"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ActionTimeout    time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// ServerConfig configures the HTTP trigger endpoint.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// RunnerConfig configures how background runs are scheduled.
type RunnerConfig struct {
	// MaxConcurrent caps simultaneous runs. Zero means unlimited.
	MaxConcurrent int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	RunTimeout    time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	HistoryLimit  int           `mapstructure:"history_limit" yaml:"history_limit"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default with the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "guestpass")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_dev_shm", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 900})

	// -- Timing --
	v.SetDefault("timing.navigation_settle", "10s")
	v.SetDefault("timing.interaction_wait", "3s")
	v.SetDefault("timing.consent_wait", "8s")
	v.SetDefault("timing.final_settle", "1s")
	v.SetDefault("timing.poll_interval", "100ms")
	v.SetDefault("timing.action_timeout", "5s")

	// -- Form --
	setFormDefaults(v)

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:5000")
	v.SetDefault("server.request_timeout", "30s")

	// -- Runner --
	v.SetDefault("runner.max_concurrent", 0)
	v.SetDefault("runner.run_timeout", "3m")
	v.SetDefault("runner.history_limit", 100)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.FormCfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values that would make a run meaningless.
func (c *Config) Validate() error {
	if c.TimingCfg.NavigationSettle <= 0 {
		return errors.New("timing.navigation_settle must be a positive duration")
	}
	if c.TimingCfg.InteractionWait < 0 || c.TimingCfg.ConsentWait < 0 || c.TimingCfg.FinalSettle < 0 {
		return errors.New("timing waits must not be negative")
	}
	if c.TimingCfg.PollInterval <= 0 {
		return errors.New("timing.poll_interval must be a positive duration")
	}
	if c.RunnerCfg.MaxConcurrent < 0 {
		return errors.New("runner.max_concurrent must not be negative")
	}
	if c.RunnerCfg.HistoryLimit < 0 {
		return errors.New("runner.history_limit must not be negative")
	}
	if c.ServerCfg.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if err := c.FormCfg.Validate(); err != nil {
		return fmt.Errorf("form configuration invalid: %w", err)
	}
	return nil
}

// ValidateTarget checks that raw is an absolute http(s) URL. Saved pages are
// handled by the plan command, which does not go through here.
func ValidateTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid target url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid target url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid target url %q: missing host", raw)
	}
	return nil
}
