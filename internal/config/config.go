// Package config loads the monitor configuration from the environment.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"wisefido-ecg/internal/models"
	"wisefido-ecg/pkg/config"
)

// Config monitor configuration.
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Monitor struct {
		WindowSize      int           // samples per display window, default 1500
		Step            int           // samples advanced per render tick, default 5
		RenderInterval  time.Duration // default 50ms
		AlarmInterval   time.Duration // default 2000ms
		ReclassifyTicks int           // reclassify the current window every N render ticks, 0 = off
		AutoClear       bool          // silence an indicator when a reclassification no longer supports it
		PlotWidth       int
		PlotRows        int
	}

	Detection struct {
		MinPeakDistance float64 // seconds
		MinProminence   float64
	}

	Classification struct {
		VariabilityCV  float64
		TachycardiaBPM float64
		BradycardiaBPM float64
	}

	Source struct {
		MatFS       float64
		MatMode     models.AnalysisMode
		TabularMode models.AnalysisMode

		CacheKeyPrefix string
		CacheTTL       time.Duration
		MQTTTopic      string
		HTTPTimeout    time.Duration
		HTTPRetries    int
	}

	Log struct {
		Level  string
		Format string
		File   string // empty logs to stdout
	}
}

// Load reads the environment over built-in defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "wisefido",
		SSLMode:  "disable",
		MaxConns: 5,
		MaxIdle:  2,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{ClientID: "wisefido-ecg", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")

	var err error
	cfg.Monitor.WindowSize, err = getInt("ECG_WINDOW_SIZE", 1500)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.Step, err = getInt("ECG_STEP", 5)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.RenderInterval, err = getMillis("ECG_RENDER_INTERVAL_MS", 50)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.AlarmInterval, err = getMillis("ECG_ALARM_INTERVAL_MS", 2000)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.ReclassifyTicks, err = getInt("ECG_RECLASSIFY_TICKS", 0)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.AutoClear, err = getBool("ECG_ALARM_AUTO_CLEAR", false)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.PlotWidth, err = getInt("ECG_PLOT_WIDTH", 100)
	if err != nil {
		return nil, err
	}
	cfg.Monitor.PlotRows, err = getInt("ECG_PLOT_ROWS", 16)
	if err != nil {
		return nil, err
	}

	cfg.Detection.MinPeakDistance, err = getFloat("ECG_MIN_PEAK_DISTANCE", 0.4)
	if err != nil {
		return nil, err
	}
	cfg.Detection.MinProminence, err = getFloat("ECG_MIN_PROMINENCE", 1.0)
	if err != nil {
		return nil, err
	}

	cfg.Classification.VariabilityCV, err = getFloat("ECG_CV_THRESHOLD", 0.10)
	if err != nil {
		return nil, err
	}
	cfg.Classification.TachycardiaBPM, err = getFloat("ECG_TACHY_BPM", 100)
	if err != nil {
		return nil, err
	}
	cfg.Classification.BradycardiaBPM, err = getFloat("ECG_BRADY_BPM", 60)
	if err != nil {
		return nil, err
	}

	cfg.Source.MatFS, err = getFloat("ECG_MAT_FS", 360)
	if err != nil {
		return nil, err
	}
	cfg.Source.MatMode, err = models.ParseAnalysisMode(getEnv("ECG_MAT_MODE", string(models.ModeVariability)))
	if err != nil {
		return nil, err
	}
	cfg.Source.TabularMode, err = models.ParseAnalysisMode(getEnv("ECG_TABULAR_MODE", string(models.ModeRate)))
	if err != nil {
		return nil, err
	}
	cfg.Source.CacheKeyPrefix = getEnv("ECG_CACHE_PREFIX", "ecg:recording:")
	cfg.Source.CacheTTL, err = getMillis("ECG_CACHE_TTL_MS", 0)
	if err != nil {
		return nil, err
	}
	cfg.Source.MQTTTopic = getEnv("ECG_MQTT_TOPIC", "ecg/+/recording")
	cfg.Source.HTTPTimeout, err = getMillis("ECG_HTTP_TIMEOUT_MS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.Source.HTTPRetries, err = getInt("ECG_HTTP_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.File = getEnv("LOG_FILE", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks sizes and rates; CLI overrides call it again.
func (c *Config) Validate() error {
	switch {
	case c.Monitor.WindowSize <= 0:
		return models.NewConfigurationError("window size must be positive, got %d", c.Monitor.WindowSize)
	case c.Monitor.Step <= 0:
		return models.NewConfigurationError("step must be positive, got %d", c.Monitor.Step)
	case c.Monitor.RenderInterval <= 0:
		return models.NewConfigurationError("render interval must be positive, got %s", c.Monitor.RenderInterval)
	case c.Monitor.AlarmInterval <= 0:
		return models.NewConfigurationError("alarm interval must be positive, got %s", c.Monitor.AlarmInterval)
	case c.Monitor.ReclassifyTicks < 0:
		return models.NewConfigurationError("reclassify ticks must not be negative, got %d", c.Monitor.ReclassifyTicks)
	case !(c.Detection.MinPeakDistance >= 0) || !(c.Detection.MinProminence >= 0):
		return models.NewConfigurationError("peak detection settings must not be negative")
	case !(c.Source.MatFS > 0) || math.IsInf(c.Source.MatFS, 0):
		return models.NewConfigurationError("mat sampling rate must be positive, got %g", c.Source.MatFS)
	}
	return nil
}

// ModeFor returns the default analysis mode for a container format.
func (c *Config) ModeFor(format models.Format) models.AnalysisMode {
	if format == models.FormatMAT {
		return c.Source.MatMode
	}
	return c.Source.TabularMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, models.NewConfigurationError("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, models.NewConfigurationError("%s: invalid number %q", key, v)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, models.NewConfigurationError("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getMillis(key string, defaultValue int) (time.Duration, error) {
	n, err := getInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
