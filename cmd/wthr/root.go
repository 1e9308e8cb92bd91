package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swelljoe/wthr.lol/internal/config"
)

// app carries the configuration shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
}

// load reads the settings and installs the configured logger as default.
func (a *app) load() (*config.Settings, *slog.Logger, error) {
	settings, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(settings.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return settings, logger, nil
}

func rootCommand() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:           "wthr",
		Short:         "wthr.lol weather dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; a broken one is not.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./wthr.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("gazetteer", "data/gazetteer.db", "path of the gazetteer database")
	bindFlags(a.v, rootCmd.PersistentFlags(), map[string]string{
		"log.level":      "log-level",
		"log.format":     "log-format",
		"gazetteer.path": "gazetteer",
	})

	rootCmd.AddCommand(serveCommand(a), importGeoCommand(a))
	return rootCmd
}
