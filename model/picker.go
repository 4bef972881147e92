package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vaultx/vaultx-term/style"
)

// PickerItem is a single entry in the picker.
type PickerItem struct {
	Value  string
	Label  string
	Detail string
	Active bool
}

// PickerChoice is emitted when the user selects an item. Purpose is the
// value passed to Open, so the app knows what the choice is for.
type PickerChoice struct {
	Purpose string
	Value   string
}

// PickerCancel is emitted when the user presses Esc.
type PickerCancel struct {
	Purpose string
}

// PickerModel renders a vertical list with arrow-key navigation. The app
// uses it to pick a template type, a tag or a document.
type PickerModel struct {
	title    string
	purpose  string
	items    []PickerItem
	cursor   int
	active   bool
	width    int
	offset   int // scroll offset for long lists
	pageSize int // visible items per page
}

// NewPicker returns an inactive PickerModel.
func NewPicker() PickerModel {
	return PickerModel{pageSize: 12}
}

// Open populates the picker and activates it. The cursor starts on the
// active item, if any.
func (m *PickerModel) Open(title, purpose string, items []PickerItem) {
	m.title = title
	m.purpose = purpose
	m.items = items
	m.cursor = 0
	m.offset = 0
	m.active = len(items) > 0
	for i, item := range items {
		if !item.Active {
			continue
		}
		m.cursor = i
		if m.cursor >= m.pageSize {
			m.offset = m.cursor - m.pageSize + 1
		}
		break
	}
}

// Clear deactivates the picker.
func (m *PickerModel) Clear() {
	m.active = false
	m.items = nil
	m.cursor = 0
	m.offset = 0
}

// IsActive reports whether the picker is currently visible.
func (m PickerModel) IsActive() bool {
	return m.active
}

// SetWidth constrains the picker to the terminal width.
func (m *PickerModel) SetWidth(w int) {
	m.width = w
}

// Init satisfies tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input when the picker is active.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.active || len(m.items) == 0 {
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		} else {
			m.cursor = len(m.items) - 1
			if m.cursor >= m.offset+m.pageSize {
				m.offset = m.cursor - m.pageSize + 1
			}
		}

	case tea.KeyDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.pageSize {
				m.offset = m.cursor - m.pageSize + 1
			}
		} else {
			m.cursor = 0
			m.offset = 0
		}

	case tea.KeyEnter:
		choice := PickerChoice{Purpose: m.purpose, Value: m.items[m.cursor].Value}
		m.Clear()
		return m, func() tea.Msg { return choice }

	case tea.KeyEsc:
		purpose := m.purpose
		m.Clear()
		return m, func() tea.Msg { return PickerCancel{Purpose: purpose} }
	}
	return m, nil
}

// View renders the picker panel.
func (m PickerModel) View() string {
	if !m.active || len(m.items) == 0 {
		return ""
	}

	var sb strings.Builder
	header := lipgloss.NewStyle().Foreground(style.Primary).Bold(true).Render("◈ " + m.title)
	hint := lipgloss.NewStyle().Foreground(style.Muted).Render("  ↑↓ navigate · Enter select · Esc cancel")
	sb.WriteString(header + hint + "\n\n")

	end := m.offset + m.pageSize
	if end > len(m.items) {
		end = len(m.items)
	}
	if m.offset > 0 {
		sb.WriteString(style.Faint.Render("  ↑ more above") + "\n")
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderItem(m.items[i], i == m.cursor))
		sb.WriteString("\n")
	}
	if end < len(m.items) {
		sb.WriteString(style.Faint.Render("  ↓ more below") + "\n")
	}
	sb.WriteString(style.Faint.Render(fmt.Sprintf("\n  %d option(s)", len(m.items))))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.Border).
		Padding(0, 1)
	if m.width > 0 {
		box = box.Width(m.width - 2)
	}
	return box.Render(sb.String())
}

func (m PickerModel) renderItem(item PickerItem, isCursor bool) string {
	cursor := "    "
	if isCursor {
		cursor = lipgloss.NewStyle().Foreground(style.Primary).Bold(true).Render("  > ")
	}
	marker := lipgloss.NewStyle().Foreground(style.Muted).Render("○")
	if item.Active {
		marker = lipgloss.NewStyle().Foreground(style.Success).Render("●")
	}
	nameStyle := lipgloss.NewStyle()
	if isCursor {
		nameStyle = nameStyle.Bold(true)
	}
	label := item.Label
	if label == "" {
		label = item.Value
	}
	line := cursor + marker + " " + nameStyle.Render(label)
	if item.Detail != "" {
		line += style.Faint.Render("  " + item.Detail)
	}
	return line
}
