package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sawpanic/derivscan/internal/application"
)

const (
	appName = "derivscan"
	version = "v1.3.0"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Incremental F&O indicator cache engine",
		Version: version,
		Long: `derivscan maintains the daily technical-indicator and open-interest
caches over the futures bhavcopy database, and classifies per-date
screening signals. Caches are append-only: every run computes and writes
only the rows not persisted yet, so reruns and interrupted runs are safe.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level")

	rootCmd.AddCommand(
		newUpdateCmd(),
		newClassifyCmd(),
		newScheduleCmd(),
		newMonitorCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the wired service.
func setup() (*application.Service, *application.Config, zerolog.Logger, error) {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	svc, err := application.NewService(cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return svc, cfg, log, nil
}

func newLogger(cfg application.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Str("app", appName).Logger(), nil
}
