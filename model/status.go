package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/style"
	"github.com/vaultx/vaultx-term/transcript"
)

// StatusModel renders the bottom status line: backend, turn state, pending
// mutations and, when a history budget is set, how much of it the
// transcript uses.
//
//	localhost:9000 · streaming · 2 pending   ██████░░░░ history 62% (1.2k/2k)
type StatusModel struct {
	backend string
	state   transcript.State
	pending int
	hint    string

	used   int
	budget int
}

// NewStatus returns a StatusModel for backend.
func NewStatus(backend string) StatusModel {
	return StatusModel{backend: backend}
}

// SetTurnState records the intake turn state.
func (m *StatusModel) SetTurnState(s transcript.State) {
	m.state = s
}

// SetPending records how many optimistic mutations await the server.
func (m *StatusModel) SetPending(n int) {
	m.pending = n
}

// SetHint sets the key hints shown on the right.
func (m *StatusModel) SetHint(h string) {
	m.hint = h
}

// SetHistory records the token cost of the transcript against budget.
// A zero budget hides the bar.
func (m *StatusModel) SetHistory(used, budget int) {
	m.used = used
	m.budget = budget
}

// Init satisfies tea.Model.
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model. StatusModel is driven by setter calls.
func (m StatusModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the status line.
func (m StatusModel) View() string {
	parts := []string{hostOf(m.backend)}
	if m.state.Active() {
		parts = append(parts, m.state.String())
	}
	if m.pending > 0 {
		parts = append(parts, style.PendingMark.Render(fmt.Sprintf("%d pending", m.pending)))
	}
	line := style.StatusBar.Render(strings.Join(parts, " · "))
	if h := m.historyLine(); h != "" {
		line += "   " + h
	}
	if m.hint != "" {
		line += "   " + style.Hint.Render(m.hint)
	}
	return line
}

func (m StatusModel) historyLine() string {
	if m.budget <= 0 {
		return ""
	}
	util := float64(m.used) / float64(m.budget)
	bar := style.BudgetBarRender(util, 10)
	label := style.BudgetBar.Render(fmt.Sprintf(" history %d%% (%s/%s)",
		int(util*100), formatTokens(m.used), formatTokens(m.budget)))
	return bar + label
}

func hostOf(url string) string {
	for _, p := range []string{"https://", "http://"} {
		url = strings.TrimPrefix(url, p)
	}
	return url
}

// formatTokens renders a token count compactly: 950, 1.2k, 3.4M.
func formatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
