package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("ECG_DB_HOST", "db.local")
	t.Setenv("ECG_DB_PORT", "6543")
	t.Setenv("ECG_DB_USER", "monitor")
	t.Setenv("ECG_DB_DATABASE", "ecg")
	t.Setenv("ECG_DB_MAX_CONNS", "not-a-number")

	cfg := DatabaseConfig{Port: 5432, SSLMode: "disable", MaxConns: 4}
	cfg.LoadFromEnv("ECG_DB")

	assert.Equal(t, "db.local", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "monitor", cfg.User)
	assert.Equal(t, "ecg", cfg.Database)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "host=db.local port=6543 user=monitor password= dbname=ecg sslmode=disable", cfg.GetDSN())
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	cfg := RedisConfig{}
	assert.False(t, cfg.Enabled())

	t.Setenv("ECG_REDIS_ADDR", "localhost:6380")
	t.Setenv("ECG_REDIS_DB", "2")
	cfg.LoadFromEnv("ECG_REDIS")

	assert.True(t, cfg.Enabled())
	assert.Equal(t, "localhost:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}

func TestMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("ECG_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("ECG_MQTT_QOS", "1")

	cfg := MQTTConfig{ClientID: "wisefido-ecg"}
	cfg.LoadFromEnv("ECG_MQTT")

	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "wisefido-ecg", cfg.ClientID)
	assert.Equal(t, byte(1), cfg.QoS)

	t.Setenv("ECG_MQTT_QOS", "7")
	cfg.LoadFromEnv("ECG_MQTT")
	assert.Equal(t, byte(1), cfg.QoS)
}
