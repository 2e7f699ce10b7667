package main

import (
	"fmt"
	"io"

	"wisefido-ecg/internal/evaluator"
	"wisefido-ecg/internal/models"
	"wisefido-ecg/internal/render"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "analyze <recording>",
		Short: "Classify a whole recording and print the RR statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			b := newBackends(cfg, log)
			defer b.Close()

			rec, err := b.resolver().Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			m := cfg.ModeFor(rec.Format)
			if mode != "" {
				if m, err = models.ParseAnalysisMode(mode); err != nil {
					return err
				}
			}

			d, err := newEvaluator(cfg, log).Evaluate(rec.Signal.Samples, rec.Signal.FS, m)
			if err != nil {
				return err
			}
			printDecision(cmd.OutOrStdout(), rec, d)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "analysis mode (variability or rate), default depends on the format")
	return cmd
}

func printDecision(w io.Writer, rec models.Recording, d evaluator.Decision) {
	fmt.Fprintf(w, "recording      %s (%s)\n", rec.Name, rec.Format)
	fmt.Fprintf(w, "samples        %d at %g Hz (%.1f s)\n", rec.Signal.Len(), rec.Signal.FS, rec.Signal.Duration())
	fmt.Fprintf(w, "mode           %s\n", d.Mode)
	if d.HeartRate != nil {
		met := d.Metrics
		fmt.Fprintf(w, "rr intervals   %d\n", len(met.Intervals))
		fmt.Fprintf(w, "mean rr        %.3f s\n", met.MeanRR)
		fmt.Fprintf(w, "std rr         %.3f s\n", met.StdRR)
		fmt.Fprintf(w, "cv             %.3f\n", met.CV)
		fmt.Fprintf(w, "heart rate     %d bpm\n", *d.HeartRate)
	} else {
		fmt.Fprintf(w, "heart rate     ---\n")
	}
	fmt.Fprintf(w, "classification %s\n", d.Classification)
	fmt.Fprintf(w, "%s\n", render.Sparkline(rec.Signal.Samples, 72))
}
