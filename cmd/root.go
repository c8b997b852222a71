// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/observability"
)

// NewRootCommand builds the command tree. A fresh instance per invocation
// keeps flag state from leaking between executions.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	cfg := config.NewDefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "hivecrawl",
		Short:   "Hivecrawl harvests community content through a stealth browser session.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := initializeViper(cfgFile)
			if err != nil {
				return err
			}

			loaded, err := config.NewFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "hivecrawl",
				})
				return fmt.Errorf("failed to load config: %w", err)
			}
			*cfg = *loaded

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting hivecrawl", zap.String("version", Version))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(newHarvestCmd(cfg))
	rootCmd.AddCommand(newSessionsCmd(cfg))

	return rootCmd
}

// Execute runs the command tree under the signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeViper reads the config file (when present) and binds the
// HIVECRAWL_* environment.
func initializeViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HIVECRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the run.
	}
	return v, nil
}
