package display

import (
	"fmt"

	"wisefido-ecg/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	normalStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"}).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#555", Dark: "#555"})
	alarmStyle = normalStyle.
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("9")).
			BorderForeground(lipgloss.Color("9"))
	hrStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("10"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
)

var indicatorLabels = map[models.Indicator]string{
	models.IndicatorAF:          "Atrial Fibrillation",
	models.IndicatorVT:          "Ventricular Tachycardia",
	models.IndicatorBradycardia: "Bradycardia",
}

// Panel terminal status panel: heart rate, the three indicators and the last
// error. Not safe for concurrent use.
type Panel struct {
	hr         *int
	indicators map[models.Indicator]bool
	errMsg     string
}

// NewPanel creates a panel with every indicator in the normal style.
func NewPanel() *Panel {
	return &Panel{indicators: make(map[models.Indicator]bool, len(models.Indicators))}
}

func (p *Panel) SetHeartRate(bpm int) {
	p.hr = &bpm
	p.errMsg = ""
}

func (p *Panel) ClearHeartRate() {
	p.hr = nil
}

func (p *Panel) SetClassificationIndicator(indicator models.Indicator, alarm bool) {
	p.indicators[indicator] = alarm
}

func (p *Panel) ShowError(msg string) {
	p.errMsg = msg
}

// HeartRate returns the shown value, if any.
func (p *Panel) HeartRate() (int, bool) {
	if p.hr == nil {
		return 0, false
	}
	return *p.hr, true
}

// Alarm reports whether indicator is currently drawn in the alarm style.
func (p *Panel) Alarm(indicator models.Indicator) bool {
	return p.indicators[indicator]
}

// LastError returns the last error message.
func (p *Panel) LastError() string {
	return p.errMsg
}

// View renders the panel.
func (p *Panel) View() string {
	hr := "HR --- bpm"
	if p.hr != nil {
		hr = fmt.Sprintf("HR %3d bpm", *p.hr)
	}

	boxes := make([]string, 0, len(models.Indicators)+1)
	boxes = append(boxes, hrStyle.Render(hr))
	for _, ind := range models.Indicators {
		style := normalStyle
		if p.indicators[ind] {
			style = alarmStyle
		}
		boxes = append(boxes, style.Render(indicatorLabels[ind]))
	}
	view := lipgloss.JoinHorizontal(lipgloss.Center, boxes...)

	if p.errMsg != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, errStyle.Render("ERROR: "+p.errMsg))
	}
	return view
}
