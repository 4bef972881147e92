package model

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/markdown"
	"github.com/vaultx/vaultx-term/style"
)

// ConfirmDecision is emitted when the user answers a confirm panel.
type ConfirmDecision struct {
	Purpose string
	Confirm bool
}

var confirmOptions = []string{"Confirm", "Cancel"}

// ConfirmModel renders a bordered question with a Confirm/Cancel selector.
// It is inactive until Ask is called.
type ConfirmModel struct {
	purpose  string
	content  string
	active   bool
	selected int // 0=Confirm, 1=Cancel
	width    int
}

// NewConfirm returns an inactive ConfirmModel.
func NewConfirm() ConfirmModel {
	return ConfirmModel{}
}

// Ask shows content, a markdown body, and waits for an answer. Cancel is preselected.
func (m *ConfirmModel) Ask(purpose, content string) {
	m.purpose = purpose
	m.content = content
	m.selected = 1
	m.active = true
}

// Clear hides the panel.
func (m *ConfirmModel) Clear() {
	m.active = false
	m.content = ""
	m.selected = 1
}

// IsActive reports whether the panel is visible.
func (m ConfirmModel) IsActive() bool {
	return m.active
}

// SetWidth constrains rendering to the terminal width.
func (m *ConfirmModel) SetWidth(w int) {
	m.width = w
}

// Init satisfies tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles keys while the panel is active. y and n answer directly.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	answer := func(yes bool) (tea.Model, tea.Cmd) {
		purpose := m.purpose
		m.Clear()
		return m, func() tea.Msg { return ConfirmDecision{Purpose: purpose, Confirm: yes} }
	}

	switch keyMsg.Type {
	case tea.KeyLeft, tea.KeyRight, tea.KeyTab:
		m.selected = 1 - m.selected
	case tea.KeyEnter:
		return answer(m.selected == 0)
	case tea.KeyEsc:
		return answer(false)
	case tea.KeyRunes:
		switch strings.ToLower(string(keyMsg.Runes)) {
		case "y":
			return answer(true)
		case "n":
			return answer(false)
		}
	}
	return m, nil
}

// View renders the panel. Returns an empty string when inactive.
func (m ConfirmModel) View() string {
	if !m.active {
		return ""
	}
	innerWidth := m.width - 6
	if innerWidth < 20 {
		innerWidth = 80
	}
	body := markdown.RenderWidth(m.content, innerWidth, style.IsDark()) + "\n\n" + confirmSelector(m.selected)

	box := style.ConfirmBox
	if m.width > 0 {
		box = box.Width(m.width - 2)
	}
	return box.Render(body)
}

// confirmSelector returns the option line, e.g.:
//
//	○ Confirm  > Cancel
func confirmSelector(selected int) string {
	parts := make([]string, len(confirmOptions))
	for i, opt := range confirmOptions {
		if i == selected {
			parts[i] = style.OptionSelected.Render("> " + opt)
		} else {
			parts[i] = style.OptionIdle.Render("○ " + opt)
		}
	}
	return strings.Join(parts, "  ")
}
