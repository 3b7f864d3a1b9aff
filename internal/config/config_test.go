// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "guestpass", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.True(t, cfg.Browser().NoSandbox)
	assert.True(t, cfg.Browser().DisableDevShm)
	assert.Equal(t, 10*time.Second, cfg.Timing().NavigationSettle)
	assert.Equal(t, 100*time.Millisecond, cfg.Timing().PollInterval)
	assert.Equal(t, time.Second, cfg.Timing().FinalSettle)
	assert.Equal(t, "127.0.0.1:5000", cfg.Server().ListenAddr)
	assert.Equal(t, 0, cfg.Runner().MaxConcurrent)
	assert.Equal(t, DefaultTargetURL, cfg.Form().TargetURL)
	assert.Equal(t, "Michael", cfg.Form().Value(FieldFirst))
	assert.Equal(t, "Gain Muscle/Weight", cfg.Form().Value(FieldGoal))
	assert.Equal(t, []string{"zip", "postal", "postcode", "postalcode"}, cfg.Form().KeywordsFor(FieldPostal))
	assert.Equal(t,
		[]FieldKey{FieldFirst, FieldLast, FieldPhone, FieldEmail, FieldStreet, FieldCity, FieldState, FieldPostal},
		cfg.Form().FillOrder)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "zero navigation settle",
			mutate:  func(c *Config) { c.TimingCfg.NavigationSettle = 0 },
			wantErr: "timing.navigation_settle must be a positive duration",
		},
		{
			name:    "negative consent wait",
			mutate:  func(c *Config) { c.TimingCfg.ConsentWait = -time.Second },
			wantErr: "timing waits must not be negative",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.TimingCfg.PollInterval = 0 },
			wantErr: "timing.poll_interval must be a positive duration",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.RunnerCfg.MaxConcurrent = -1 },
			wantErr: "runner.max_concurrent must not be negative",
		},
		{
			name:    "missing listen address",
			mutate:  func(c *Config) { c.ServerCfg.ListenAddr = "" },
			wantErr: "server.listen_addr is required",
		},
		{
			name:    "dedicated step in fill order",
			mutate:  func(c *Config) { c.FormCfg.FillOrder = append(c.FormCfg.FillOrder, FieldGender) },
			wantErr: `"gender" is handled by its own step`,
		},
		{
			name:    "field without keywords",
			mutate:  func(c *Config) { c.FormCfg.Keywords[FieldCity] = nil },
			wantErr: "form.keywords.city must not be empty",
		},
		{
			name:    "no action phrases",
			mutate:  func(c *Config) { c.FormCfg.ActionPhrases = nil },
			wantErr: "form.action_phrases must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Viper Integration --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides merge with defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yaml := []byte(`
browser:
  headless: false
timing:
  consent_wait: 2s
form:
  values:
    first: Ada
  keywords:
    first: ["  FIRST ", "Forename"]
runner:
  max_concurrent: 2
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.False(t, cfg.Browser().Headless)
		assert.Equal(t, 2*time.Second, cfg.Timing().ConsentWait)
		assert.Equal(t, 2, cfg.Runner().MaxConcurrent)
		assert.Equal(t, "Ada", cfg.Form().Value(FieldFirst))
		// Untouched values keep their defaults.
		assert.Equal(t, "Tse", cfg.Form().Value(FieldLast))
		// Keywords are normalized on load.
		assert.Equal(t, []string{"first", "forename"}, cfg.Form().KeywordsFor(FieldFirst))
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("timing.poll_interval", "0s")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget(DefaultTargetURL))
	assert.NoError(t, ValidateTarget("http://127.0.0.1:8080/join"))
	assert.Error(t, ValidateTarget("file:///tmp/form.html"), "saved pages go through plan")
	assert.Error(t, ValidateTarget("ftp://example.com"))
	assert.Error(t, ValidateTarget("https://"))
	assert.Error(t, ValidateTarget("://broken"))
}
