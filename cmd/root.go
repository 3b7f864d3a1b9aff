// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envPrefix = "GUESTPASS"
	configDir = "~/.guestpass"
)

// rootState is shared by the root command and its subcommands. Each call to
// NewRootCommand gets its own viper instance so commands never leak flags
// into each other.
type rootState struct {
	v       *viper.Viper
	cfgFile string
}

// loadConfig unmarshals and validates the configuration with every bound
// flag applied.
func (s *rootState) loadConfig() (*config.Config, error) {
	return config.NewConfigFromViper(s.v)
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	st := &rootState{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "guestpass",
		Short:         "guestpass fills web registration forms in a real browser.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(st); err != nil {
				return err
			}

			var loggerCfg config.LoggerConfig
			if err := st.v.UnmarshalKey("logger", &loggerCfg); err != nil {
				observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "guestpass"}, zapcore.AddSync(cmd.ErrOrStderr()))
				return fmt.Errorf("failed to unmarshal logger config: %w", err)
			}
			observability.Initialize(loggerCfg, zapcore.AddSync(cmd.ErrOrStderr()))
			observability.GetLogger().Debug("Starting guestpass", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&st.cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.guestpass/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "guestpass version %s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(st),
		newServeCmd(st),
		newPlanCmd(st),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx, which should be canceled on
// SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig registers defaults, then merges the config file and
// GUESTPASS_* environment variables.
func initializeConfig(st *rootState) error {
	config.SetDefaults(st.v)

	if st.cfgFile != "" {
		path, err := homedir.Expand(st.cfgFile)
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		st.v.SetConfigFile(path)
	} else {
		st.v.AddConfigPath(".")
		if dir, err := homedir.Expand(configDir); err == nil {
			st.v.AddConfigPath(filepath.Clean(dir))
		}
		st.v.SetConfigName("config")
		st.v.SetConfigType("yaml")
	}

	st.v.SetEnvPrefix(envPrefix)
	st.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	st.v.AutomaticEnv()

	if err := st.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
