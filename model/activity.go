package model

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/style"
)

// ActivityModel renders a spinner and elapsed timer while a turn streams.
//
//	⣾ Nurse is replying… (4s · 212 chars)
type ActivityModel struct {
	sp        spinner.Model
	active    bool
	startTime time.Time
	chars     int
	now       func() time.Time
}

// NewActivity constructs an ActivityModel with a Dot spinner.
func NewActivity() ActivityModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.Typing
	return ActivityModel{sp: sp, now: time.Now}
}

// Start shows the activity line and resets the timer. The returned command
// starts the spinner.
func (m *ActivityModel) Start() tea.Cmd {
	m.active = true
	m.startTime = m.clock()
	m.chars = 0
	return m.sp.Tick
}

// Stop hides the activity line.
func (m *ActivityModel) Stop() {
	m.active = false
}

// Active reports whether the line is shown.
func (m ActivityModel) Active() bool {
	return m.active
}

// SetReceived records how much assistant text has arrived.
func (m *ActivityModel) SetReceived(chars int) {
	m.chars = chars
}

func (m ActivityModel) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// Update advances the spinner. Ticks stop once the line is hidden.
func (m ActivityModel) Update(teaMsg tea.Msg) (ActivityModel, tea.Cmd) {
	if tick, ok := teaMsg.(spinner.TickMsg); ok && m.active {
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(tick)
		return m, cmd
	}
	return m, nil
}

// View renders the activity line. Returns "" when inactive.
func (m ActivityModel) View() string {
	if !m.active {
		return ""
	}
	elapsed := m.clock().Sub(m.startTime)
	phrase := "Nurse is thinking…"
	if m.chars > 0 {
		phrase = "Nurse is replying…"
	}
	detail := formatElapsed(elapsed)
	if m.chars > 0 {
		detail += fmt.Sprintf(" · %d chars", m.chars)
	}
	return m.sp.View() + " " + style.Typing.Render(fmt.Sprintf("%s (%s)", phrase, detail))
}

// formatElapsed renders a duration as 4s or 1m05s.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
