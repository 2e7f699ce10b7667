// Package display holds the one-way widgets the monitor reports to.
package display

import (
	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// Display receives heart rate, indicator and error updates. The monitor never
// reads anything back.
type Display interface {
	SetHeartRate(bpm int)
	ClearHeartRate()
	// SetClassificationIndicator alarm true draws the alarm style.
	SetClassificationIndicator(indicator models.Indicator, alarm bool)
	ShowError(msg string)
}

// LogDisplay reports every update through zap; used when running headless.
type LogDisplay struct {
	logger *zap.Logger
}

// NewLogDisplay creates a headless display.
func NewLogDisplay(logger *zap.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

func (d *LogDisplay) SetHeartRate(bpm int) {
	d.logger.Info("Heart rate", zap.Int("heart_rate", bpm))
}

func (d *LogDisplay) ClearHeartRate() {
	d.logger.Debug("Heart rate cleared")
}

func (d *LogDisplay) SetClassificationIndicator(indicator models.Indicator, alarm bool) {
	d.logger.Debug("Indicator phase",
		zap.String("indicator", string(indicator)),
		zap.Bool("alarm", alarm),
	)
}

func (d *LogDisplay) ShowError(msg string) {
	d.logger.Error("Display error", zap.String("message", msg))
}
