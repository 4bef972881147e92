package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/notes"
	"github.com/vaultx/vaultx-term/style"
)

// BoardModel is the kanban view of note templates.
type BoardModel struct {
	columns []client.Column
	buckets map[string][]client.Template
	items   []client.Template
	pending map[string]bool
	filters notes.Filters

	col int
	row int

	now    func() time.Time
	width  int
	height int
}

// NewBoard returns a board showing the default columns.
func NewBoard() BoardModel {
	m := BoardModel{now: time.Now}
	m.SetColumns(notes.DefaultColumns)
	return m
}

// SetSize sets the area available to the tab.
func (m *BoardModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// SetColumns replaces the lanes.
func (m *BoardModel) SetColumns(cols []client.Column) {
	if len(cols) == 0 {
		cols = notes.DefaultColumns
	}
	m.columns = notes.SortColumns(cols)
	m.rebucket()
}

// Columns are the lanes in board order.
func (m BoardModel) Columns() []client.Column {
	return m.columns
}

// SetItems replaces the cards. The cursor follows the selected card when it
// is still visible.
func (m *BoardModel) SetItems(items []client.Template, pending func(id string) bool) {
	m.items = items
	m.pending = make(map[string]bool)
	for _, t := range items {
		if pending != nil && pending(t.ID) {
			m.pending[t.ID] = true
		}
	}
	m.rebucket()
}

// SetFilters applies f to the visible cards.
func (m *BoardModel) SetFilters(f notes.Filters) {
	m.filters = f
	m.rebucket()
}

// Filters are the active filters.
func (m BoardModel) Filters() notes.Filters {
	return m.filters
}

// Tags lists the tags offered for the tag filter.
func (m BoardModel) Tags() []string {
	return notes.AvailableTags(m.items, m.filters)
}

func (m *BoardModel) rebucket() {
	selected := ""
	if t, ok := m.Selected(); ok {
		selected = t.ID
	}
	m.buckets = notes.ByColumn(m.columns, m.items, m.filters)
	if selected == "" {
		m.clamp()
		return
	}
	for ci, c := range m.columns {
		for ri, t := range m.buckets[c.ID] {
			if t.ID == selected {
				m.col, m.row = ci, ri
				return
			}
		}
	}
	m.clamp()
}

func (m *BoardModel) clamp() {
	if m.col >= len(m.columns) {
		m.col = len(m.columns) - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	n := 0
	if m.col < len(m.columns) {
		n = len(m.buckets[m.columns[m.col].ID])
	}
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// MoveColumn moves the cursor to a neighboring lane.
func (m *BoardModel) MoveColumn(delta int) {
	m.col += delta
	m.clamp()
}

// MoveRow moves the cursor within the lane.
func (m *BoardModel) MoveRow(delta int) {
	m.row += delta
	m.clamp()
}

// CurrentColumn is the lane under the cursor.
func (m BoardModel) CurrentColumn() (client.Column, bool) {
	if m.col < 0 || m.col >= len(m.columns) {
		return client.Column{}, false
	}
	return m.columns[m.col], true
}

// Selected is the card under the cursor.
func (m BoardModel) Selected() (client.Template, bool) {
	c, ok := m.CurrentColumn()
	if !ok {
		return client.Template{}, false
	}
	cards := m.buckets[c.ID]
	if m.row < 0 || m.row >= len(cards) {
		return client.Template{}, false
	}
	return cards[m.row], true
}

// View renders the filter line and the lanes side by side.
func (m BoardModel) View() string {
	if len(m.columns) == 0 {
		return ""
	}
	colW := m.width/len(m.columns) - 2
	if colW < 18 {
		colW = 18
	}
	now := time.Now()
	if m.now != nil {
		now = m.now()
	}

	lanes := make([]string, 0, len(m.columns))
	for ci, c := range m.columns {
		cards := m.buckets[c.ID]
		var sb strings.Builder
		sb.WriteString(style.ColumnTitle.Render(fmt.Sprintf("%s (%d)", c.Name, len(cards))))
		for ri, t := range cards {
			sb.WriteString("\n")
			sb.WriteString(m.renderCard(t, ci == m.col && ri == m.row, colW-4, now))
		}
		if len(cards) == 0 {
			sb.WriteString("\n" + style.Faint.Render("empty"))
		}
		lanes = append(lanes, style.ColumnBox.Width(colW).Render(sb.String()))
	}
	return m.filterLine() + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
}

func (m BoardModel) renderCard(t client.Template, selected bool, width int, now time.Time) string {
	title := truncate(t.Title, width)
	if m.pending[t.ID] {
		title = style.PendingMark.Render("⟳ ") + title
	}
	meta := style.TypeBadge.Render(notes.TypeLabel(t.Type))
	if t.IsApproved {
		meta += " " + style.ApprovedBadge.Render("✓ approved")
	}
	lines := []string{style.Bold.Render(title), meta}
	if p := notes.PreviewLine(t); p != "" {
		lines = append(lines, style.CardMeta.Render(truncate(p, width)))
	}
	if len(t.Tags) > 0 {
		lines = append(lines, style.CardMeta.Render(truncate("#"+strings.Join(t.Tags, " #"), width)))
	}
	lines = append(lines, style.CardMeta.Render(notes.FormatUpdatedAgo(t.UpdatedAt, now)))

	box := style.Card
	if selected {
		box = style.CardSelected
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (m BoardModel) filterLine() string {
	f := m.filters
	if !f.Active() {
		return style.Title.Render("Notes") + "  " + style.Faint.Render("no filters")
	}
	var parts []string
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("search %q", q))
	}
	if f.Type != "" {
		parts = append(parts, "type "+notes.TypeLabel(f.Type))
	}
	if f.Tag != "" {
		parts = append(parts, "#"+f.Tag)
	}
	return style.Title.Render("Notes") + "  " + strings.Join(parts, " · ")
}
