package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings. Global bindings apply on every tab;
// the rest only on the tab named in their group.
type KeyMap struct {
	// Global
	Quit    key.Binding
	NextTab key.Binding
	Intake  key.Binding
	Inbox   key.Binding
	Notes   key.Binding
	Palette key.Binding
	Escape  key.Binding
	Enter   key.Binding

	// Intake
	Send      key.Binding
	NewIntake key.Binding
	Submit    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding

	// Lists
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Inbox
	Review     key.Binding
	Close      key.Binding
	Regenerate key.Binding
	Refresh    key.Binding
	Documents  key.Binding

	// Notes
	MoveLeft   key.Binding
	MoveRight  key.Binding
	Approve    key.Binding
	Rename     key.Binding
	EditTags   key.Binding
	EditField  key.Binding
	Create     key.Binding
	Duplicate  key.Binding
	Delete     key.Binding
	Search     key.Binding
	TypeFilter key.Binding
	TagFilter  key.Binding
	ClearAll   key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("shift+tab", "ctrl+t"),
			key.WithHelp("shift+tab", "next tab"),
		),
		Intake: key.NewBinding(
			key.WithKeys("alt+1", "f1"),
			key.WithHelp("alt+1", "intake"),
		),
		Inbox: key.NewBinding(
			key.WithKeys("alt+2", "f2"),
			key.WithHelp("alt+2", "inbox"),
		),
		Notes: key.NewBinding(
			key.WithKeys("alt+3", "f3"),
			key.WithHelp("alt+3", "notes"),
		),
		Palette: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "commands"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),

		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewIntake: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new intake"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),

		Review: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "mark reviewed"),
		),
		Close: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "close case"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "regenerate summary"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		Documents: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "documents"),
		),

		MoveLeft: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "move left"),
		),
		MoveRight: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "move right"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle approval"),
		),
		Rename: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "rename"),
		),
		EditTags: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "edit tags"),
		),
		EditField: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit content"),
		),
		Create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new card"),
		),
		Duplicate: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "duplicate"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		TypeFilter: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "cycle type"),
		),
		TagFilter: key.NewBinding(
			key.WithKeys("#"),
			key.WithHelp("#", "filter tag"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear filters"),
		),
	}
}

// hints returns the short help line for a tab.
func (k KeyMap) hints(t Tab) string {
	var bs []key.Binding
	switch t {
	case TabIntake:
		bs = []key.Binding{k.Send, k.Escape, k.NewIntake, k.Submit}
	case TabInbox:
		bs = []key.Binding{k.Enter, k.Review, k.Close, k.Regenerate, k.Documents, k.Refresh}
	case TabNotes:
		bs = []key.Binding{k.MoveLeft, k.MoveRight, k.Approve, k.Rename, k.EditField, k.Create, k.Delete, k.Search, k.TypeFilter}
	}
	bs = append(bs, k.NextTab, k.Palette)
	out := ""
	for i, b := range bs {
		if i > 0 {
			out += " · "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
