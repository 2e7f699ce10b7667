package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"wisefido-ecg/internal/consumer"
	"wisefido-ecg/internal/models"
	mqttcommon "wisefido-ecg/pkg/mqtt"

	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	var (
		device string
		mode   string
		inline bool
	)
	cmd := &cobra.Command{
		Use:   "publish <recording>",
		Short: "Send a load event to monitors listening on MQTT",
		Long: `publish sends a load event on ecg/<device>/recording. By default the
event carries the reference (cache://, db:// or a URL) and the monitor fetches
it; with --inline the decoded samples travel in the event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.MQTT.Enabled() {
				return models.NewConfigurationError("MQTT_BROKER is not set")
			}
			if mode != "" {
				if _, err := models.ParseAnalysisMode(mode); err != nil {
					return err
				}
			}
			log, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			event := consumer.LoadEvent{Mode: mode}
			if inline {
				b := newBackends(cfg, log)
				defer b.Close()
				rec, err := b.resolver().Fetch(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				event.Name = rec.Name
				event.FS = rec.Signal.FS
				event.Samples = rec.Signal.Samples
			} else {
				event.RecordingID = args[0]
			}

			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to encode load event: %w", err)
			}

			client, err := mqttcommon.NewClient(&cfg.MQTT, log)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			topic := strings.Replace(cfg.Source.MQTTTopic, "+", device, 1)
			if err := client.Publish(topic, cfg.MQTT.QoS, false, payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", topic)
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "bedside-1", "device segment of the topic")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "analysis mode for the receiving monitor")
	cmd.Flags().BoolVar(&inline, "inline", false, "embed the decoded samples in the event")
	return cmd
}
