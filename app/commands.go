package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/model"
	"github.com/vaultx/vaultx-term/notes"
	"github.com/vaultx/vaultx-term/style"
)

// paletteItems lists the commands offered by the palette.
func (m Model) paletteItems() []model.PaletteItem {
	items := []model.PaletteItem{
		{Name: "tab.intake", Description: "Go to intake", Category: "navigate"},
		{Name: "tab.inbox", Description: "Go to inbox", Category: "navigate"},
		{Name: "tab.notes", Description: "Go to notes", Category: "navigate"},
		{Name: "intake.new", Description: "Start a new intake", Category: "intake"},
		{Name: "intake.submit", Description: "Submit the intake", Category: "intake"},
		{Name: "inbox.refresh", Description: "Reload the inbox", Category: "inbox"},
		{Name: "notes.refresh", Description: "Reload the notes board", Category: "notes"},
		{Name: "notes.clear", Description: "Clear note filters", Category: "notes"},
	}
	for _, name := range style.ThemeNames {
		items = append(items, model.PaletteItem{Name: "theme." + name, Description: "Use the " + name + " theme", Category: "theme"})
	}
	return append(items, model.PaletteItem{Name: "quit", Description: "Quit vaultx", Category: "app"})
}

// runCommand executes a palette command.
func (m Model) runCommand(name string) (tea.Model, tea.Cmd) {
	if theme, ok := strings.CutPrefix(name, "theme."); ok {
		if style.SetTheme(theme) {
			m.toasts.Add("", "Theme set to "+theme+".", model.ToastInfo)
			m.chat.SetSize(m.width, m.height) // re-render with the new palette
			m.layout()
		}
		return m, nil
	}

	switch name {
	case "tab.intake":
		return m.switchTab(TabIntake)
	case "tab.inbox":
		return m.switchTab(TabInbox)
	case "tab.notes":
		return m.switchTab(TabNotes)
	case "intake.new":
		return m.newIntake()
	case "intake.submit":
		next, cmd := m.switchTab(TabIntake)
		nm := next.(Model)
		sm, scmd := nm.beginSubmit()
		return sm, tea.Batch(cmd, scmd)
	case "inbox.refresh":
		return m, m.loadInbox()
	case "notes.refresh":
		return m, m.loadBoard()
	case "notes.clear":
		return m.applyFilters(notes.Filters{}, false)
	case "quit":
		m.abortTurn()
		return m, tea.Quit
	}
	return m, nil
}
