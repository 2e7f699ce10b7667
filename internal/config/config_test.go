package config

import (
	"testing"
	"time"

	"wisefido-ecg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "wisefido", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.MQTT.Broker)
	assert.False(t, cfg.MQTT.Enabled())

	assert.Equal(t, 1500, cfg.Monitor.WindowSize)
	assert.Equal(t, 5, cfg.Monitor.Step)
	assert.Equal(t, 50*time.Millisecond, cfg.Monitor.RenderInterval)
	assert.Equal(t, 2*time.Second, cfg.Monitor.AlarmInterval)
	assert.Equal(t, 0, cfg.Monitor.ReclassifyTicks)
	assert.False(t, cfg.Monitor.AutoClear)

	assert.Equal(t, 0.4, cfg.Detection.MinPeakDistance)
	assert.Equal(t, 1.0, cfg.Detection.MinProminence)

	assert.Equal(t, 0.10, cfg.Classification.VariabilityCV)
	assert.Equal(t, 100.0, cfg.Classification.TachycardiaBPM)
	assert.Equal(t, 60.0, cfg.Classification.BradycardiaBPM)

	assert.Equal(t, 360.0, cfg.Source.MatFS)
	assert.Equal(t, models.ModeVariability, cfg.Source.MatMode)
	assert.Equal(t, models.ModeRate, cfg.Source.TabularMode)
	assert.Equal(t, "ecg:recording:", cfg.Source.CacheKeyPrefix)
	assert.Equal(t, "ecg/+/recording", cfg.Source.MQTTTopic)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("ECG_WINDOW_SIZE", "3000")
	t.Setenv("ECG_ALARM_INTERVAL_MS", "500")
	t.Setenv("ECG_RECLASSIFY_TICKS", "40")
	t.Setenv("ECG_ALARM_AUTO_CLEAR", "true")
	t.Setenv("ECG_MAT_MODE", "rate")
	t.Setenv("ECG_TACHY_BPM", "120")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, 3000, cfg.Monitor.WindowSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.AlarmInterval)
	assert.Equal(t, 40, cfg.Monitor.ReclassifyTicks)
	assert.True(t, cfg.Monitor.AutoClear)
	assert.Equal(t, models.ModeRate, cfg.Source.MatMode)
	assert.Equal(t, 120.0, cfg.Classification.TachycardiaBPM)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"ECG_WINDOW_SIZE":       "wide",
		"ECG_MIN_PROMINENCE":    "tall",
		"ECG_ALARM_AUTO_CLEAR":  "sometimes",
		"ECG_MAT_MODE":          "spectral",
		"ECG_STEP":              "0",
		"ECG_MAT_FS":            "-360",
		"ECG_RECLASSIFY_TICKS":  "-1",
		"ECG_MIN_PEAK_DISTANCE": "NaN",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load()
			var cfgErr *models.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad_NonFiniteMatFS(t *testing.T) {
	for _, v := range []string{"NaN", "+Inf"} {
		t.Setenv("ECG_MAT_FS", v)

		_, err := Load()
		var cfgErr *models.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr, v)
	}
}

func TestConfig_ModeFor(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, models.ModeVariability, cfg.ModeFor(models.FormatMAT))
	assert.Equal(t, models.ModeRate, cfg.ModeFor(models.FormatCSV))
	assert.Equal(t, models.ModeRate, cfg.ModeFor(models.FormatXLSX))
	assert.Equal(t, models.ModeRate, cfg.ModeFor(models.FormatJSON))
}
