package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/inbox"
	"github.com/vaultx/vaultx-term/markdown"
	"github.com/vaultx/vaultx-term/style"
)

// InboxModel is the case table with a detail pane for the selected case.
type InboxModel struct {
	rows    []client.Case
	pending map[string]bool
	cursor  int
	kpis    *client.Dashboard

	detailID string
	detailV  *client.CaseDetail
	detail   string // markdown
	loading  bool

	width  int
	height int
}

// NewInbox returns an empty InboxModel.
func NewInbox() InboxModel {
	return InboxModel{loading: true}
}

// SetSize sets the area available to the tab.
func (m *InboxModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// SetRows replaces the rows. The cursor stays on the same case when it is
// still present. pending marks cases with a mutation in flight.
func (m *InboxModel) SetRows(rows []client.Case, pending func(id string) bool) {
	selected := ""
	if c, ok := m.Selected(); ok {
		selected = c.ID
	}
	m.rows = rows
	m.loading = false
	m.pending = make(map[string]bool, len(rows))
	m.cursor = 0
	for i, r := range rows {
		if pending != nil && pending(r.ID) {
			m.pending[r.ID] = true
		}
		if r.ID == selected {
			m.cursor = i
		}
	}
}

// SetDashboard sets the KPI block shown above the table.
func (m *InboxModel) SetDashboard(d *client.Dashboard) {
	m.kpis = d
}

// SetDetail shows d for case id. A nil d clears the pane.
func (m *InboxModel) SetDetail(id string, d *client.CaseDetail) {
	m.detailID = id
	m.detailV = d
	m.detail = DetailMarkdown(d)
}

// Detail is the case shown in the pane, or nil.
func (m InboxModel) Detail() *client.CaseDetail {
	return m.detailV
}

// DetailID is the case whose detail is shown.
func (m InboxModel) DetailID() string {
	return m.detailID
}

// Move shifts the cursor by delta, clamped to the rows.
func (m *InboxModel) Move(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected is the case under the cursor.
func (m InboxModel) Selected() (client.Case, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return client.Case{}, false
	}
	return m.rows[m.cursor], true
}

// View renders the KPI line, the table and the detail pane side by side.
func (m InboxModel) View() string {
	if m.loading {
		return style.Faint.Render("  Loading inbox…")
	}
	tableW := m.width / 2
	if tableW < 40 {
		tableW = m.width
	}
	table := m.kpiLine() + "\n\n" + m.tableView(tableW)
	if tableW == m.width || m.detail == "" {
		return table
	}
	paneW := m.width - tableW - 4
	body := markdown.RenderWidth(m.detail, paneW-2, style.IsDark())
	pane := style.DetailPane.Width(paneW).MaxHeight(m.height).Render(body)
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(tableW).Render(table), pane)
}

func (m InboxModel) kpiLine() string {
	c := inbox.Count(m.rows)
	line := fmt.Sprintf("%d cases · %d pending · %d reviewed · %d closed", c.Total, c.Pending, c.Reviewed, c.Closed)
	if c.RedFlags > 0 {
		line += " · " + style.RedFlag.Render(fmt.Sprintf("%d flagged", c.RedFlags))
	}
	if m.kpis != nil {
		line += style.Faint.Render(fmt.Sprintf("   avg resolution %.1fh", m.kpis.KPIs.AvgResolutionTime))
	}
	return style.Title.Render("Inbox") + "  " + line
}

func (m InboxModel) tableView(width int) string {
	if len(m.rows) == 0 {
		return style.Faint.Render("  No cases.")
	}
	nameW := width - 36
	if nameW < 10 {
		nameW = 10
	}
	var sb strings.Builder
	sb.WriteString(style.TableHeader.Render(fmt.Sprintf("  %-*s %-10s %-6s %s", nameW, "Patient", "Status", "Flags", "Submitted")))

	// Keep the cursor visible within the available height.
	visible := m.height - 4
	if visible < 1 {
		visible = len(m.rows)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := start; i < end; i++ {
		r := m.rows[i]
		mark := "  "
		if m.pending[r.ID] {
			mark = style.PendingMark.Render("⟳ ")
		}
		flags := ""
		if r.RedFlagsCount > 0 {
			flags = fmt.Sprintf("⚑ %d", r.RedFlagsCount)
		}
		line := fmt.Sprintf("%-*s %-10s %-6s %s",
			nameW, truncate(r.PatientName, nameW), inbox.StatusLabel(r.Status), flags, shortDate(r.SubmittedAt))
		switch {
		case i == m.cursor:
			line = style.RowSelected.Render(line)
		case r.Status == client.StatusPending:
			line = style.StatusPending.Render(line)
		case r.Status == client.StatusReviewed:
			line = style.StatusReviewed.Render(line)
		default:
			line = style.StatusClosed.Render(line)
		}
		sb.WriteString("\n" + mark + line)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// shortDate keeps the date and minute of an ISO timestamp.
func shortDate(iso string) string {
	if len(iso) >= 16 {
		return strings.Replace(iso[:16], "T", " ", 1)
	}
	return iso
}
