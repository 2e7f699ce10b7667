package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"wisefido-ecg/internal/config"
	"wisefido-ecg/internal/consumer"
	"wisefido-ecg/internal/display"
	"wisefido-ecg/internal/models"
	"wisefido-ecg/internal/render"
	"wisefido-ecg/internal/service"
	"wisefido-ecg/internal/signal"
	"wisefido-ecg/pkg/logger"
	mqttcommon "wisefido-ecg/pkg/mqtt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultTerminalLog = "wisefido-ecg.log"

type runFlags struct {
	demo     bool
	demoBPM  float64
	mode     string
	headless bool
	window   int
	step     int
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [recording]",
		Short: "Scroll a recording and raise rhythm alarms",
		Long: `run loads the recording, classifies it once and scrolls it until
interrupted. With MQTT_BROKER set, load events on ECG_MQTT_TOPIC replace the
running recording.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return run(cmd.Context(), ref, f)
		},
	}
	cmd.Flags().BoolVar(&f.demo, "demo", false, "play a synthetic recording instead of a file")
	cmd.Flags().Float64Var(&f.demoBPM, "demo-bpm", 75, "heart rate of the synthetic recording")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "analysis mode (variability or rate), default depends on the format")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "log updates instead of drawing the terminal")
	cmd.Flags().IntVar(&f.window, "window", 0, "display window in samples (overrides ECG_WINDOW_SIZE)")
	cmd.Flags().IntVar(&f.step, "step", 0, "samples advanced per render tick (overrides ECG_STEP)")
	return cmd
}

func run(ctx context.Context, ref string, f runFlags) error {
	if ref == "" && !f.demo && f.headless {
		return errors.New("a recording or --demo is required when running headless")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if f.window > 0 {
		cfg.Monitor.WindowSize = f.window
	}
	if f.step > 0 {
		cfg.Monitor.Step = f.step
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	var mode models.AnalysisMode
	if f.mode != "" {
		if mode, err = models.ParseAnalysisMode(f.mode); err != nil {
			return err
		}
	}

	// the terminal owns stdout, so logs go to a file unless headless
	var log *zap.Logger
	if f.headless {
		log, err = newLogger(cfg)
	} else {
		path := cfg.Log.File
		if path == "" {
			path = defaultTerminalLog
		}
		log, err = logger.NewFileLogger(path, cfg.Log.Level, serviceName)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	b := newBackends(cfg, log)
	defer b.Close()
	resolver := b.resolver()

	var (
		disp     display.Display
		renderer render.Renderer
		panel    *display.Panel
		term     *render.Terminal
	)
	if f.headless {
		disp = display.NewLogDisplay(log)
		renderer = render.Discard{}
	} else {
		panel = display.NewPanel()
		term = render.NewTerminal(os.Stdout, cfg.Monitor.PlotWidth, cfg.Monitor.PlotRows, panel)
		defer term.Close()
		disp = panel
		renderer = term
	}

	monitor := service.NewMonitor(monitorOptions(cfg), newEvaluator(cfg, log), renderer, disp, cfg.ModeFor, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	var rec models.Recording
	switch {
	case f.demo:
		rec = demoRecording(cfg, f.demoBPM)
	case ref != "":
		if rec, err = resolver.Fetch(ctx, ref); err != nil {
			cancel()
			<-done
			return err
		}
	}
	if rec.Signal.Len() > 0 {
		res, err := monitor.Load(ctx, service.LoadRequest{Recording: rec, Mode: mode})
		if err != nil {
			cancel()
			<-done
			return err
		}
		log.Info("Initial recording classified",
			zap.String("session_id", res.SessionID),
			zap.String("classification", string(res.Decision.Classification)),
		)
	}

	if cfg.MQTT.Enabled() {
		client, err := mqttcommon.NewClient(&cfg.MQTT, log)
		if err != nil {
			cancel()
			<-done
			return err
		}
		defer client.Disconnect()

		c := consumer.NewMQTTConsumer(client, cfg.Source.MQTTTopic, cfg.MQTT.QoS, resolver, monitor.LoadRecording, monitor.ReportError, log)
		go func() {
			if err := c.Start(ctx); err != nil {
				log.Error("MQTT consumer failed", zap.Error(err))
			}
		}()
	}

	err = <-done
	if term != nil {
		// the alternate screen hides the panel once closed
		term.Close()
		if msg := panel.LastError(); msg != "" {
			fmt.Fprintf(os.Stderr, "last error: %s\n", msg)
		}
	}
	return err
}

func monitorOptions(cfg *config.Config) service.Options {
	opts := service.DefaultOptions()
	opts.WindowSize = cfg.Monitor.WindowSize
	opts.Step = cfg.Monitor.Step
	opts.RenderInterval = cfg.Monitor.RenderInterval
	opts.AlarmInterval = cfg.Monitor.AlarmInterval
	opts.ReclassifyTicks = cfg.Monitor.ReclassifyTicks
	opts.AutoClear = cfg.Monitor.AutoClear
	return opts
}

// demoRecording one minute of synthetic ECG at the MAT sampling rate.
func demoRecording(cfg *config.Config, bpm float64) models.Recording {
	fs := cfg.Source.MatFS
	n := int(60 * fs)
	if n < cfg.Monitor.WindowSize {
		n = cfg.Monitor.WindowSize * 2
	}
	samples := signal.NewECGSim(fs, bpm, 0.02).WithGain(2).Generate(n)
	return models.Recording{
		Name:   fmt.Sprintf("demo-%.0fbpm", bpm),
		Format: models.FormatJSON,
		Signal: models.Signal{Samples: samples, FS: fs},
	}
}
