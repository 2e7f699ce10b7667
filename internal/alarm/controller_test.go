package alarm

import (
	"testing"

	"wisefido-ecg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	ind   models.Indicator
	alarm bool
}

type recordingSink struct {
	calls []call
}

func (s *recordingSink) SetClassificationIndicator(ind models.Indicator, alarm bool) {
	s.calls = append(s.calls, call{ind, alarm})
}

func newTestController() (*Controller, *recordingSink) {
	sink := &recordingSink{}
	return NewController(sink, zap.NewNop()), sink
}

func TestController_ActivateShowsAlarmStyleFirst(t *testing.T) {
	c, sink := newTestController()

	activated, err := c.Activate(models.IndicatorAF)
	require.NoError(t, err)
	assert.True(t, activated)
	assert.Equal(t, models.IndicatorState{State: models.AlarmActive, Phase: true}, c.State(models.IndicatorAF))
	assert.Equal(t, []call{{models.IndicatorAF, true}}, sink.calls)
	assert.True(t, c.AnyActive())
}

func TestController_TickAlternates(t *testing.T) {
	c, sink := newTestController()
	_, err := c.Activate(models.IndicatorVT)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		changed := c.Tick()
		assert.Equal(t, []models.Indicator{models.IndicatorVT}, changed)
	}

	want := []call{
		{models.IndicatorVT, true},
		{models.IndicatorVT, false},
		{models.IndicatorVT, true},
		{models.IndicatorVT, false},
		{models.IndicatorVT, true},
	}
	assert.Equal(t, want, sink.calls)
}

func TestController_DoubleActivationSinglePhaseLoop(t *testing.T) {
	c, sink := newTestController()

	first, err := c.Activate(models.IndicatorAF)
	require.NoError(t, err)
	second, err := c.Activate(models.IndicatorAF)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	c.Tick()

	// one flip per tick, phase not reset by the second activation
	assert.Equal(t, models.IndicatorState{State: models.AlarmActive, Phase: false}, c.State(models.IndicatorAF))
	assert.Len(t, sink.calls, 2)
}

func TestController_SecondActivationKeepsPhase(t *testing.T) {
	c, _ := newTestController()
	_, _ = c.Activate(models.IndicatorBradycardia)
	c.Tick()

	_, err := c.Activate(models.IndicatorBradycardia)
	require.NoError(t, err)
	assert.False(t, c.State(models.IndicatorBradycardia).Phase)
}

func TestController_TickWithNothingActive(t *testing.T) {
	c, sink := newTestController()
	assert.Empty(t, c.Tick())
	assert.Empty(t, sink.calls)
	assert.False(t, c.AnyActive())
}

func TestController_Reset(t *testing.T) {
	c, sink := newTestController()

	// safe with nothing active
	c.Reset()
	assert.Empty(t, sink.calls)

	_, _ = c.Activate(models.IndicatorAF)
	_, _ = c.Activate(models.IndicatorVT)
	sink.calls = nil

	c.Reset()
	assert.False(t, c.AnyActive())
	assert.ElementsMatch(t, []call{{models.IndicatorAF, false}, {models.IndicatorVT, false}}, sink.calls)

	sink.calls = nil
	c.Reset()
	assert.Empty(t, sink.calls)
	assert.Empty(t, c.Tick())
}

func TestController_Disconnect(t *testing.T) {
	c, sink := newTestController()

	assert.False(t, c.Disconnect(models.IndicatorAF))
	assert.Empty(t, sink.calls)

	_, _ = c.Activate(models.IndicatorAF)
	_, _ = c.Activate(models.IndicatorVT)

	assert.True(t, c.Disconnect(models.IndicatorAF))
	assert.Equal(t, models.AlarmSilent, c.State(models.IndicatorAF).State)
	assert.Equal(t, models.AlarmActive, c.State(models.IndicatorVT).State)
	assert.Equal(t, []models.Indicator{models.IndicatorVT}, c.Tick())
}

func TestController_UnknownIndicator(t *testing.T) {
	c, _ := newTestController()

	_, err := c.Activate(models.Indicator("st-elevation"))
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.False(t, c.Disconnect(models.Indicator("st-elevation")))
}

func TestController_Snapshot(t *testing.T) {
	c, _ := newTestController()
	_, _ = c.Activate(models.IndicatorVT)

	st := models.NewDisplayState()
	c.Snapshot(st.Indicators)
	assert.Equal(t, models.AlarmActive, st.Indicators[models.IndicatorVT].State)
	assert.Equal(t, models.AlarmSilent, st.Indicators[models.IndicatorAF].State)
}
