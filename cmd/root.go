// Package cmd wires the blog-cms command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rpupo63/blog-cms-backend/config"
)

// NewRootCommand returns the blog-cms command. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "blog-cms",
		Short:         "Blog CMS API server and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(v.GetString("LOG_LEVEL"), v.GetString("LOG_FORMAT"))
		},
	}
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "Log output format (console or json)")
	_ = v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("LOG_FORMAT", root.PersistentFlags().Lookup("log-format"))

	serve := newServeCommand(v)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(v))
	root.AddCommand(newSeedCommand(v))
	root.AddCommand(newGenerateCommand(v))
	root.AddCommand(newDraftSyncCommand(v))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig reads the environment (with the SSM overlay) and applies any
// flag the user set explicitly on top.
func loadConfig(ctx context.Context, v *viper.Viper, keys ...string) (map[string]string, error) {
	c, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	overrides := map[string]string{}
	for _, key := range keys {
		if v.IsSet(key) {
			overrides[key] = v.GetString(key)
		}
	}
	return config.Merge(c, overrides), nil
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
