// wisefido-ecg plays back an ECG recording on the terminal, classifies its
// rhythm and raises blinking alarm indicators for abnormal rhythms.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wisefido-ecg/internal/config"
	"wisefido-ecg/internal/detector"
	"wisefido-ecg/internal/evaluator"
	"wisefido-ecg/internal/loader"
	"wisefido-ecg/pkg/logger"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "wisefido-ecg"

var (
	version = "dev"
	envFile string
)

func main() {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "ECG playback monitor with rhythm alarms",
		Long: `wisefido-ecg loads an ECG recording (.mat, .csv, .xlsx or .json), scrolls
it across the terminal and classifies the rhythm as Normal, atrial
fibrillation, ventricular tachycardia or bradycardia.

Recordings can come from a local path, an http(s) URL, the Redis cache
(cache://<id>), Postgres (db://<id>) or MQTT load events.

Settings are read from the environment (ECG_*, DB_*, REDIS_*, MQTT_*,
LOG_*), optionally seeded from a .env file.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to seed the environment from, if present")

	root.AddCommand(
		newRunCmd(),
		newAnalyzeCmd(),
		newCacheCmd(),
		newDBCmd(),
		newPublishCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, root); err != nil {
		os.Exit(1)
	}
}

// loadEnvFile never overrides variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to cfg.Log.File when set, otherwise to stdout.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.File != "" {
		return logger.NewFileLogger(cfg.Log.File, cfg.Log.Level, serviceName)
	}
	return logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
}

func newLoader(cfg *config.Config, log *zap.Logger) *loader.Loader {
	return loader.New(loader.Options{MatFS: cfg.Source.MatFS}, log)
}

func newEvaluator(cfg *config.Config, log *zap.Logger) *evaluator.Evaluator {
	return evaluator.NewEvaluator(
		detector.Options{
			MinDistanceSeconds: cfg.Detection.MinPeakDistance,
			MinProminence:      cfg.Detection.MinProminence,
		},
		evaluator.Thresholds{
			VariabilityCV:  cfg.Classification.VariabilityCV,
			TachycardiaBPM: cfg.Classification.TachycardiaBPM,
			BradycardiaBPM: cfg.Classification.BradycardiaBPM,
		},
		log,
	)
}
