package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/vaultx/vaultx-term/style"
)

// PaletteExecuteMsg is sent when the user selects a command.
type PaletteExecuteMsg struct {
	Command string
}

// PaletteDismissMsg is sent when the user closes the palette.
type PaletteDismissMsg struct{}

// PaletteItem is a single entry in the command palette.
type PaletteItem struct {
	Name        string // e.g. "inbox.refresh"
	Description string // e.g. "Reload the inbox"
	Category    string // e.g. "inbox"
}

func (p PaletteItem) filterValue() string {
	return p.Name + " " + p.Description + " " + p.Category
}

// PaletteModel is a filterable command palette overlay.
type PaletteModel struct {
	active   bool
	filter   textinput.Model
	items    []PaletteItem
	filtered []PaletteItem
	cursor   int
	width    int
	height   int
}

var (
	paletteEsc   = key.NewBinding(key.WithKeys("esc", "ctrl+c"))
	paletteEnter = key.NewBinding(key.WithKeys("enter"))
	paletteUp    = key.NewBinding(key.WithKeys("up"))
	paletteDown  = key.NewBinding(key.WithKeys("down"))
)

// NewPalette constructs a PaletteModel.
func NewPalette() PaletteModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(style.Primary)
	return PaletteModel{filter: ti}
}

const maxVisible = 12

// Open activates the palette with a list of commands.
func (m *PaletteModel) Open(items []PaletteItem, width, height int) tea.Cmd {
	m.active = true
	m.items = items
	m.filtered = items
	m.cursor = 0
	m.width = width
	m.height = height
	m.filter.SetValue("")
	m.filter.Width = width/2 - 6
	return m.filter.Focus()
}

// IsActive reports whether the palette overlay is visible.
func (m PaletteModel) IsActive() bool { return m.active }

func (m *PaletteModel) close() {
	m.active = false
	m.filter.Blur()
}

// Update handles keyboard events for the palette.
func (m PaletteModel) Update(msg tea.Msg) (PaletteModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, paletteEsc):
			m.close()
			return m, func() tea.Msg { return PaletteDismissMsg{} }

		case key.Matches(km, paletteEnter):
			if m.cursor < len(m.filtered) {
				cmd := m.filtered[m.cursor].Name
				m.close()
				return m, func() tea.Msg { return PaletteExecuteMsg{Command: cmd} }
			}
			return m, nil

		case key.Matches(km, paletteUp):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(km, paletteDown):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	prev := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != prev {
		m.applyFilter()
	}
	return m, cmd
}

// applyFilter ranks the items by fuzzy match against the filter text.
func (m *PaletteModel) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	m.cursor = 0
	if query == "" {
		m.filtered = m.items
		return
	}
	matches := fuzzy.FindFrom(query, paletteSource(m.items))
	results := make([]PaletteItem, len(matches))
	for i, match := range matches {
		results[i] = m.items[match.Index]
	}
	m.filtered = results
}

type paletteSource []PaletteItem

func (s paletteSource) String(i int) string { return s[i].filterValue() }
func (s paletteSource) Len() int            { return len(s) }

// window returns the start of the visible slice of filtered items.
func (m PaletteModel) window() int {
	if len(m.filtered) <= maxVisible {
		return 0
	}
	start := m.cursor - maxVisible/2
	if start < 0 {
		start = 0
	}
	if start+maxVisible > len(m.filtered) {
		start = len(m.filtered) - maxVisible
	}
	return start
}

// View renders the palette as a centered overlay.
func (m PaletteModel) View() string {
	if !m.active {
		return ""
	}

	boxWidth := m.width / 2
	if boxWidth < 50 {
		boxWidth = 50
	}
	if boxWidth > m.width-4 {
		boxWidth = m.width - 4
	}

	var sb strings.Builder
	sb.WriteString(style.Title.Render("Commands"))
	sb.WriteByte('\n')
	sb.WriteString(m.filter.View())
	sb.WriteByte('\n')
	sb.WriteString(lipgloss.NewStyle().Foreground(style.Border).Render(strings.Repeat("─", max(boxWidth-4, 1))))
	sb.WriteByte('\n')

	start := m.window()
	end := start + maxVisible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	if len(m.filtered) == 0 {
		sb.WriteString(style.Faint.Render("  No matching commands"))
	}
	for i := start; i < end; i++ {
		item := m.filtered[i]
		var line string
		if i == m.cursor {
			marker := lipgloss.NewStyle().Foreground(style.Primary).Bold(true).Render("> ")
			name := lipgloss.NewStyle().Foreground(style.Secondary).Bold(true).Render(item.Description)
			line = marker + name
		} else {
			line = "  " + lipgloss.NewStyle().Foreground(style.Secondary).Render(item.Description)
		}
		if item.Category != "" {
			line += lipgloss.NewStyle().Foreground(style.Dim).Render("  [" + item.Category + "]")
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}
	if len(m.filtered) > maxVisible {
		sb.WriteByte('\n')
		sb.WriteString(style.Faint.Render("  ... and more (type to filter)"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.Border).
		Padding(1, 2).
		Width(boxWidth).
		Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
