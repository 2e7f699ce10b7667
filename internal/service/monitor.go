// Package service runs the monitor: one goroutine owning the loaded signal,
// the display window, the alarm indicators and both tickers.
package service

import (
	"context"
	"fmt"
	"time"

	"wisefido-ecg/internal/alarm"
	"wisefido-ecg/internal/buffer"
	"wisefido-ecg/internal/display"
	"wisefido-ecg/internal/evaluator"
	"wisefido-ecg/internal/models"
	"wisefido-ecg/internal/render"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options monitor timing and window settings.
type Options struct {
	WindowSize     int
	Step           int
	RenderInterval time.Duration
	AlarmInterval  time.Duration
	PlotHeight     float64
	// ReclassifyTicks reclassifies the visible window every N render ticks,
	// 0 keeps the one-shot classification made at load time.
	ReclassifyTicks int
	// AutoClear silences indicators a reclassification no longer supports.
	AutoClear bool
}

// DefaultOptions 1500-sample window advanced 5 samples every 50 ms, alarm
// indicators toggling every 2 s.
func DefaultOptions() Options {
	return Options{
		WindowSize:     1500,
		Step:           5,
		RenderInterval: 50 * time.Millisecond,
		AlarmInterval:  2000 * time.Millisecond,
		PlotHeight:     render.DefaultHeight,
	}
}

// ModeResolver picks the analysis mode when a load request leaves it empty.
type ModeResolver func(format models.Format) models.AnalysisMode

// LoadRequest one load event. Mode empty means the configured default.
type LoadRequest struct {
	Recording models.Recording
	Mode      models.AnalysisMode
}

// LoadResult outcome of an accepted load.
type LoadResult struct {
	SessionID string
	Decision  evaluator.Decision
}

type loadReply struct {
	result LoadResult
	err    error
}

type loadCall struct {
	req   LoadRequest
	reply chan loadReply
}

type session struct {
	id        string
	recording models.Recording
	mode      models.AnalysisMode
	window    *buffer.SlidingWindow
}

// Monitor the display core. All state below the channels is owned by Run.
type Monitor struct {
	opts      Options
	evaluator *evaluator.Evaluator
	alarms    *alarm.Controller
	renderer  render.Renderer
	display   display.Display
	modeFor   ModeResolver
	logger    *zap.Logger

	loads     chan loadCall
	reports   chan error
	snapshots chan chan models.DisplayState

	session      *session
	state        models.DisplayState
	renderTicker *time.Ticker
	alarmTicker  *time.Ticker
	renderTicks  int
}

// NewMonitor creates a monitor. Collaborators are only called from Run.
func NewMonitor(
	opts Options,
	eval *evaluator.Evaluator,
	renderer render.Renderer,
	disp display.Display,
	modeFor ModeResolver,
	logger *zap.Logger,
) *Monitor {
	if opts.PlotHeight <= 0 {
		opts.PlotHeight = render.DefaultHeight
	}
	return &Monitor{
		opts:      opts,
		evaluator: eval,
		alarms:    alarm.NewController(disp, logger),
		renderer:  renderer,
		display:   disp,
		modeFor:   modeFor,
		logger:    logger,
		loads:     make(chan loadCall),
		reports:   make(chan error),
		snapshots: make(chan chan models.DisplayState),
		state:     models.NewDisplayState(),
	}
}

// Run owns the monitor until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Monitor started",
		zap.Int("window_size", m.opts.WindowSize),
		zap.Int("step", m.opts.Step),
		zap.Duration("render_interval", m.opts.RenderInterval),
		zap.Duration("alarm_interval", m.opts.AlarmInterval),
	)
	defer m.stopTimers()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopped")
			return nil
		case call := <-m.loads:
			res, err := m.handleLoad(call.req)
			call.reply <- loadReply{result: res, err: err}
		case err := <-m.reports:
			m.logger.Error("Load event rejected", zap.Error(err))
			m.display.ShowError(err.Error())
		case reply := <-m.snapshots:
			reply <- m.state.Clone()
		case <-tickC(m.renderTicker):
			m.renderTick()
		case <-tickC(m.alarmTicker):
			m.alarmTick()
		}
	}
}

// Load hands a recording to the running monitor and waits for the analysis.
// On error the previous session keeps running untouched.
func (m *Monitor) Load(ctx context.Context, req LoadRequest) (LoadResult, error) {
	call := loadCall{req: req, reply: make(chan loadReply, 1)}
	select {
	case m.loads <- call:
	case <-ctx.Done():
		return LoadResult{}, ctx.Err()
	}
	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-ctx.Done():
		return LoadResult{}, ctx.Err()
	}
}

// LoadRecording adapts Load to the consumer.LoadFunc shape.
func (m *Monitor) LoadRecording(ctx context.Context, rec models.Recording, mode models.AnalysisMode) error {
	_, err := m.Load(ctx, LoadRequest{Recording: rec, Mode: mode})
	return err
}

// ReportError shows a load failure that happened before the recording
// reached the monitor, e.g. an MQTT event whose recording could not be
// fetched. The running session is not touched.
func (m *Monitor) ReportError(ctx context.Context, err error) {
	select {
	case m.reports <- err:
	case <-ctx.Done():
	}
}

// Snapshot returns a copy of the current display state.
func (m *Monitor) Snapshot(ctx context.Context) (models.DisplayState, error) {
	reply := make(chan models.DisplayState, 1)
	select {
	case m.snapshots <- reply:
	case <-ctx.Done():
		return models.DisplayState{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return models.DisplayState{}, ctx.Err()
	}
}

func (m *Monitor) handleLoad(req LoadRequest) (LoadResult, error) {
	rec := req.Recording
	res, err := m.prepare(req)
	if err != nil {
		m.logger.Error("Failed to load recording",
			zap.String("recording", rec.Name),
			zap.Error(err),
		)
		m.display.ShowError(err.Error())
		return LoadResult{}, err
	}

	// commit: everything from the previous session is discarded
	m.stopTimers()
	if m.session != nil {
		m.session.window.Reset()
	}
	m.alarms.Reset()

	m.session = res.session
	m.renderTicks = 0
	m.state = models.NewDisplayState()
	m.state.SessionID = res.session.id
	m.state.Recording = rec.Name
	m.state.Mode = res.session.mode

	m.applyDecision(res.decision)
	m.startRender()

	m.logger.Info("Recording loaded",
		zap.String("session_id", res.session.id),
		zap.String("recording", rec.Name),
		zap.String("format", string(rec.Format)),
		zap.Int("sample_count", rec.Signal.Len()),
		zap.Int("window_size", res.session.window.WindowSize()),
		zap.Float64("fs", rec.Signal.FS),
		zap.String("mode", string(res.session.mode)),
		zap.String("classification", string(res.decision.Classification)),
	)

	return LoadResult{SessionID: res.session.id, Decision: res.decision}, nil
}

type prepared struct {
	session  *session
	decision evaluator.Decision
}

// prepare does all fallible work without touching monitor state.
func (m *Monitor) prepare(req LoadRequest) (prepared, error) {
	rec := req.Recording
	if err := rec.Signal.Validate(); err != nil {
		return prepared{}, err
	}

	win, err := buffer.New(rec.Signal.Samples, m.opts.WindowSize)
	if err != nil {
		return prepared{}, err
	}

	mode := req.Mode
	if mode == "" && m.modeFor != nil {
		mode = m.modeFor(rec.Format)
	}
	if _, err := models.ParseAnalysisMode(string(mode)); err != nil {
		return prepared{}, err
	}

	decision, err := m.evaluator.Evaluate(rec.Signal.Samples, rec.Signal.FS, mode)
	if err != nil {
		return prepared{}, fmt.Errorf("failed to analyze %s: %w", rec.Name, err)
	}

	return prepared{
		session: &session{
			id:        uuid.New().String(),
			recording: rec,
			mode:      mode,
			window:    win,
		},
		decision: decision,
	}, nil
}

// applyDecision pushes a classification to the display and the alarms.
func (m *Monitor) applyDecision(d evaluator.Decision) {
	m.state.Classification = d.Classification
	if d.HeartRate != nil {
		hr := *d.HeartRate
		m.state.HeartRate = &hr
		m.display.SetHeartRate(hr)
	} else {
		m.state.HeartRate = nil
		m.display.ClearHeartRate()
	}

	ind, abnormal := d.Indicator()
	if abnormal {
		if _, err := m.alarms.Activate(ind); err != nil {
			m.logger.Error("Failed to activate alarm", zap.String("indicator", string(ind)), zap.Error(err))
		}
	}
	if m.opts.AutoClear && d.Classification != models.ClassificationInsufficientData {
		for _, other := range models.Indicators {
			if !abnormal || other != ind {
				m.alarms.Disconnect(other)
			}
		}
	}

	if m.alarms.AnyActive() {
		m.armAlarm()
	} else {
		m.disarmAlarm()
	}
	m.alarms.Snapshot(m.state.Indicators)
}

func (m *Monitor) renderTick() {
	if m.session == nil {
		return
	}
	view := m.session.window.Advance(m.opts.Step)
	frame := render.NewFrame(view, m.opts.PlotHeight)
	m.session.window.SetArtifact(frame)
	if err := m.renderer.Render(frame); err != nil {
		m.logger.Warn("Render failed", zap.Error(err))
	}

	m.renderTicks++
	if n := m.opts.ReclassifyTicks; n > 0 && m.renderTicks%n == 0 {
		m.reclassify(view)
	}
}

func (m *Monitor) reclassify(view buffer.View) {
	s := m.session
	d, err := m.evaluator.Evaluate(view.Samples, s.recording.Signal.FS, s.mode)
	if err != nil {
		m.logger.Warn("Reclassification failed", zap.String("session_id", s.id), zap.Error(err))
		return
	}
	if d.Classification != m.state.Classification {
		m.logger.Info("Rhythm changed",
			zap.String("session_id", s.id),
			zap.Int("offset", s.window.Offset()),
			zap.String("classification", string(d.Classification)),
		)
	}
	m.applyDecision(d)
}

func (m *Monitor) alarmTick() {
	m.alarms.Tick()
	m.alarms.Snapshot(m.state.Indicators)
}

func (m *Monitor) startRender() {
	if m.renderTicker == nil {
		m.renderTicker = time.NewTicker(m.opts.RenderInterval)
		return
	}
	m.renderTicker.Reset(m.opts.RenderInterval)
}

// armAlarm starts the alarm ticker unless it is already running, so a
// repeated activation keeps the existing phase cadence.
func (m *Monitor) armAlarm() {
	if m.alarmTicker == nil {
		m.alarmTicker = time.NewTicker(m.opts.AlarmInterval)
	}
}

func (m *Monitor) disarmAlarm() {
	if m.alarmTicker != nil {
		m.alarmTicker.Stop()
		m.alarmTicker = nil
	}
}

func (m *Monitor) stopTimers() {
	if m.renderTicker != nil {
		m.renderTicker.Stop()
	}
	m.disarmAlarm()
}

// tickC returns nil for a nil ticker; receiving from nil blocks forever.
func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
