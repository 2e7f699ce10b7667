// Package config holds connection settings shared by the recording sources.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig Postgres connection settings for the recording repository.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis connection settings for the recording cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig broker settings for the load-event consumer.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Enabled reports whether a database host is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// LoadFromEnv overrides fields from PREFIX_HOST, PREFIX_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	setString(&c.Host, prefix+"_HOST")
	setInt(&c.Port, prefix+"_PORT")
	setString(&c.User, prefix+"_USER")
	setString(&c.Password, prefix+"_PASSWORD")
	setString(&c.Database, prefix+"_DATABASE")
	setString(&c.SSLMode, prefix+"_SSLMODE")
	setInt(&c.MaxConns, prefix+"_MAX_CONNS")
	setInt(&c.MaxIdle, prefix+"_MAX_IDLE")
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// LoadFromEnv overrides fields from PREFIX_ADDR, PREFIX_PASSWORD, PREFIX_DB.
func (c *RedisConfig) LoadFromEnv(prefix string) {
	setString(&c.Addr, prefix+"_ADDR")
	setString(&c.Password, prefix+"_PASSWORD")
	setInt(&c.DB, prefix+"_DB")
}

// Enabled reports whether a broker URL is configured.
func (c *MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// LoadFromEnv overrides fields from PREFIX_BROKER, PREFIX_CLIENT_ID, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	setString(&c.Broker, prefix+"_BROKER")
	setString(&c.ClientID, prefix+"_CLIENT_ID")
	setString(&c.Username, prefix+"_USERNAME")
	setString(&c.Password, prefix+"_PASSWORD")
	if v := os.Getenv(prefix + "_QOS"); v != "" {
		if qos, err := strconv.Atoi(v); err == nil && qos >= 0 && qos <= 2 {
			c.QoS = byte(qos)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt leaves dst untouched when the variable is unset or not a number.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
