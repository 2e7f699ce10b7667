// Package alarm drives the blinking abnormal-rhythm indicators.
package alarm

import (
	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// IndicatorSink receives every phase change. alarmStyle true means the
// indicator should be drawn in the alarm style, false in the normal style.
type IndicatorSink interface {
	SetClassificationIndicator(indicator models.Indicator, alarmStyle bool)
}

type machine struct {
	state models.AlarmState
	phase bool
}

// Controller one state machine per indicator, advanced by an external tick.
// Not safe for concurrent use; the monitor loop owns it.
type Controller struct {
	machines map[models.Indicator]*machine
	sink     IndicatorSink
	logger   *zap.Logger
}

// NewController creates a controller with every indicator silent.
func NewController(sink IndicatorSink, logger *zap.Logger) *Controller {
	m := make(map[models.Indicator]*machine, len(models.Indicators))
	for _, ind := range models.Indicators {
		m[ind] = &machine{state: models.AlarmSilent}
	}
	return &Controller{machines: m, sink: sink, logger: logger}
}

// Activate moves an indicator from Silent to Active and shows the alarm
// style right away rather than on the first tick. Activating an already
// active indicator changes nothing and returns false.
func (c *Controller) Activate(ind models.Indicator) (bool, error) {
	m, ok := c.machines[ind]
	if !ok {
		return false, models.NewConfigurationError("unknown indicator %q", ind)
	}
	if m.state == models.AlarmActive {
		return false, nil
	}

	m.state = models.AlarmActive
	m.phase = true
	c.sink.SetClassificationIndicator(ind, true)

	c.logger.Warn("Alarm activated", zap.String("indicator", string(ind)))
	return true, nil
}

// Tick flips the phase of every active indicator exactly once and returns
// the indicators that changed, in display order.
func (c *Controller) Tick() []models.Indicator {
	var changed []models.Indicator
	for _, ind := range models.Indicators {
		m := c.machines[ind]
		if m.state != models.AlarmActive {
			continue
		}
		m.phase = !m.phase
		c.sink.SetClassificationIndicator(ind, m.phase)
		changed = append(changed, ind)
	}
	return changed
}

// Disconnect silences one indicator. No-op when it is already silent.
func (c *Controller) Disconnect(ind models.Indicator) bool {
	m, ok := c.machines[ind]
	if !ok || m.state != models.AlarmActive {
		return false
	}
	c.silence(ind, m)
	c.logger.Info("Alarm cleared", zap.String("indicator", string(ind)))
	return true
}

// Reset silences every indicator. Safe to call when nothing is active.
func (c *Controller) Reset() {
	cleared := 0
	for _, ind := range models.Indicators {
		m := c.machines[ind]
		if m.state == models.AlarmActive {
			c.silence(ind, m)
			cleared++
		}
	}
	if cleared > 0 {
		c.logger.Info("Alarms reset", zap.Int("cleared", cleared))
	}
}

func (c *Controller) silence(ind models.Indicator, m *machine) {
	m.state = models.AlarmSilent
	m.phase = false
	c.sink.SetClassificationIndicator(ind, false)
}

// AnyActive reports whether the alarm ticker needs to run.
func (c *Controller) AnyActive() bool {
	for _, m := range c.machines {
		if m.state == models.AlarmActive {
			return true
		}
	}
	return false
}

// State returns the snapshot of one indicator.
func (c *Controller) State(ind models.Indicator) models.IndicatorState {
	m, ok := c.machines[ind]
	if !ok {
		return models.IndicatorState{State: models.AlarmSilent}
	}
	return models.IndicatorState{State: m.state, Phase: m.phase}
}

// Snapshot copies every indicator state into dst.
func (c *Controller) Snapshot(dst map[models.Indicator]models.IndicatorState) {
	for ind, m := range c.machines {
		dst[ind] = models.IndicatorState{State: m.state, Phase: m.phase}
	}
}
