// Package consumer feeds recordings into the monitor from Redis and MQTT.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// ErrRecordingNotFound no cached recording under the requested id.
var ErrRecordingNotFound = errors.New("recording not found in cache")

// RecordingCache stores decoded recordings as JSON under prefix+id.
type RecordingCache struct {
	kv     KVStore
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRecordingCache creates a cache. ttl 0 keeps entries forever.
func NewRecordingCache(kv KVStore, prefix string, ttl time.Duration, logger *zap.Logger) *RecordingCache {
	return &RecordingCache{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Key builds the cache key for id.
func (c *RecordingCache) Key(id string) string {
	return c.prefix + id
}

// Put stores rec under rec.ID.
func (c *RecordingCache) Put(ctx context.Context, rec models.Recording) error {
	if rec.ID == "" {
		return models.NewConfigurationError("recording id must not be empty")
	}

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}
	if err := c.kv.Set(ctx, c.Key(rec.ID), string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to cache recording: %w", err)
	}

	c.logger.Debug("Recording cached",
		zap.String("recording_id", rec.ID),
		zap.Int("sample_count", len(rec.Signal.Samples)),
	)
	return nil
}

// Fetch loads the recording cached under id.
func (c *RecordingCache) Fetch(ctx context.Context, id string) (models.Recording, error) {
	key := c.Key(id)
	val, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return models.Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
		}
		return models.Recording{}, fmt.Errorf("failed to get recording: %w", err)
	}

	var rec models.Recording
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.Recording{}, models.NewFormatError(key, "invalid cached recording", err)
	}
	if err := rec.Signal.Validate(); err != nil {
		return models.Recording{}, models.NewFormatError(key, "invalid cached recording", err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// Delete removes the recording cached under id.
func (c *RecordingCache) Delete(ctx context.Context, id string) error {
	if err := c.kv.Del(ctx, c.Key(id)); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}
