package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wisefido-ecg/internal/models"
	mqttcommon "wisefido-ecg/pkg/mqtt"

	"go.uber.org/zap"
)

// Subscriber the part of the MQTT client the consumer uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// RecordingFetcher resolves a recording id, e.g. RecordingCache.
type RecordingFetcher interface {
	Fetch(ctx context.Context, id string) (models.Recording, error)
}

// LoadFunc hands a recording to the monitor. An empty mode means the
// configured default for the recording's format.
type LoadFunc func(ctx context.Context, rec models.Recording, mode models.AnalysisMode) error

// ReportFunc surfaces a load event that failed before reaching the monitor.
type ReportFunc func(ctx context.Context, err error)

// LoadEvent MQTT payload on ecg/{device}/recording. Either RecordingID or
// inline Samples+FS must be set.
type LoadEvent struct {
	RecordingID string    `json:"recording_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	FS          float64   `json:"fs,omitempty"`
	Samples     []float64 `json:"samples,omitempty"`
}

// MQTTConsumer turns load events into monitor loads.
type MQTTConsumer struct {
	sub     Subscriber
	topic   string
	qos     byte
	fetcher RecordingFetcher
	load    LoadFunc
	report  ReportFunc
	logger  *zap.Logger

	ctx context.Context
}

// NewMQTTConsumer creates a consumer. fetcher may be nil when only inline
// recordings are expected.
func NewMQTTConsumer(
	sub Subscriber,
	topic string,
	qos byte,
	fetcher RecordingFetcher,
	load LoadFunc,
	report ReportFunc,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		sub:     sub,
		topic:   topic,
		qos:     qos,
		fetcher: fetcher,
		load:    load,
		report:  report,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.sub.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to load topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return c.Stop()
}

// Stop unsubscribes.
func (c *MQTTConsumer) Stop() error {
	if err := c.sub.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage errors go back to the MQTT client for logging. Failures
// before the load are also reported; the monitor shows its own load errors.
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	device, rec, mode, err := c.decodeEvent(topic, payload)
	if err != nil {
		if c.report != nil {
			c.report(c.ctx, err)
		}
		return err
	}

	c.logger.Info("Load event received",
		zap.String("device", device),
		zap.String("recording", rec.Name),
		zap.String("mode", string(mode)),
	)
	return c.load(c.ctx, rec, mode)
}

func (c *MQTTConsumer) decodeEvent(topic string, payload []byte) (string, models.Recording, models.AnalysisMode, error) {
	// topic: ecg/{device}/recording
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", models.Recording{}, "", fmt.Errorf("invalid topic format: %s", topic)
	}
	device := parts[1]

	var event LoadEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return device, models.Recording{}, "", models.NewFormatError(topic, "invalid load event", err)
	}

	var mode models.AnalysisMode
	if event.Mode != "" {
		m, err := models.ParseAnalysisMode(event.Mode)
		if err != nil {
			return device, models.Recording{}, "", err
		}
		mode = m
	}

	rec, err := c.resolve(device, event)
	if err != nil {
		return device, models.Recording{}, "", err
	}
	return device, rec, mode, nil
}

func (c *MQTTConsumer) resolve(device string, event LoadEvent) (models.Recording, error) {
	if event.RecordingID != "" {
		if c.fetcher == nil {
			return models.Recording{}, fmt.Errorf("recording %s requested but no recording store is configured", event.RecordingID)
		}
		return c.fetcher.Fetch(c.ctx, event.RecordingID)
	}

	sig := models.Signal{Samples: event.Samples, FS: event.FS}
	if err := sig.Validate(); err != nil {
		return models.Recording{}, models.NewFormatError("mqtt:"+device, "invalid inline recording", err)
	}
	name := event.Name
	if name == "" {
		name = device
	}
	return models.Recording{Name: name, Format: models.FormatJSON, Signal: sig}, nil
}
