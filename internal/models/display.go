package models

// AlarmState lifecycle of a single indicator.
type AlarmState string

const (
	AlarmSilent AlarmState = "silent"
	AlarmActive AlarmState = "active"
)

// IndicatorState snapshot of one indicator. Phase true means the alarm style
// is showing.
type IndicatorState struct {
	State AlarmState `json:"state"`
	Phase bool       `json:"phase"`
}

// DisplayState everything the display collaborator needs, owned by the core.
type DisplayState struct {
	SessionID      string                       `json:"session_id"`
	Recording      string                       `json:"recording"`
	Mode           AnalysisMode                 `json:"mode"`
	HeartRate      *int                         `json:"heart_rate,omitempty"`
	Classification Classification               `json:"classification"`
	Indicators     map[Indicator]IndicatorState `json:"indicators"`
}

// NewDisplayState returns a state with every indicator silent.
func NewDisplayState() DisplayState {
	ind := make(map[Indicator]IndicatorState, len(Indicators))
	for _, i := range Indicators {
		ind[i] = IndicatorState{State: AlarmSilent}
	}
	return DisplayState{Indicators: ind}
}

// Clone returns a copy safe to hand to another goroutine.
func (d DisplayState) Clone() DisplayState {
	out := d
	if d.HeartRate != nil {
		hr := *d.HeartRate
		out.HeartRate = &hr
	}
	out.Indicators = make(map[Indicator]IndicatorState, len(d.Indicators))
	for k, v := range d.Indicators {
		out.Indicators[k] = v
	}
	return out
}
