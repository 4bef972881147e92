package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors. SetTheme swaps these and rebuilds the styles below.
var (
	Primary   lipgloss.TerminalColor = lipgloss.Color("#0EA5E9") // sky-500
	Secondary lipgloss.TerminalColor = lipgloss.Color("#14B8A6") // teal-500
	Success   lipgloss.TerminalColor = lipgloss.Color("#22C55E") // green-500
	Warning   lipgloss.TerminalColor = lipgloss.Color("#F59E0B") // amber-500
	Error     lipgloss.TerminalColor = lipgloss.Color("#EF4444") // red-500
	Muted     lipgloss.TerminalColor = lipgloss.Color("#6B7280") // gray-500
	Dim       lipgloss.TerminalColor = lipgloss.Color("#374151") // gray-700
	Border    lipgloss.TerminalColor = lipgloss.Color("#4B5563") // gray-600

	MsgBorderPatient   lipgloss.TerminalColor = lipgloss.Color("#14B8A6")
	MsgBorderAssistant lipgloss.TerminalColor = lipgloss.Color("#0EA5E9")
	MsgBorderSystem    lipgloss.TerminalColor = lipgloss.Color("#374151")
)

// Styles.
var (
	Bold      lipgloss.Style
	Faint     lipgloss.Style
	ErrorText lipgloss.Style
	Hint      lipgloss.Style

	// Tabs
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Title       lipgloss.Style

	// Chat
	PromptChar     lipgloss.Style
	PatientLabel   lipgloss.Style
	AssistantLabel lipgloss.Style
	Typing         lipgloss.Style

	// Inbox
	TableHeader    lipgloss.Style
	RowSelected    lipgloss.Style
	StatusPending  lipgloss.Style
	StatusReviewed lipgloss.Style
	StatusClosed   lipgloss.Style
	RedFlag        lipgloss.Style
	PendingMark    lipgloss.Style
	DetailPane     lipgloss.Style

	// Board
	ColumnBox     lipgloss.Style
	ColumnTitle   lipgloss.Style
	Card          lipgloss.Style
	CardSelected  lipgloss.Style
	CardMeta      lipgloss.Style
	ApprovedBadge lipgloss.Style
	TypeBadge     lipgloss.Style

	// Confirm dialog
	ConfirmBox     lipgloss.Style
	OptionSelected lipgloss.Style
	OptionIdle     lipgloss.Style

	// Status bar
	StatusBar lipgloss.Style
	BudgetBar lipgloss.Style
	SignedOut lipgloss.Style
)

func init() {
	rebuildStyles()
}

// SetTheme applies a named theme, updating all color vars and rebuilding styles.
func SetTheme(name string) bool {
	t, ok := Themes[name]
	if !ok {
		return false
	}
	CurrentThemeName = name
	Primary = t.Primary
	Secondary = t.Secondary
	Success = t.Success
	Warning = t.Warning
	Error = t.Error
	Muted = t.Muted
	Dim = t.Dim
	Border = t.Border
	MsgBorderPatient = t.MsgBorderPatient
	MsgBorderAssistant = t.MsgBorderAssistant
	MsgBorderSystem = t.MsgBorderSystem
	rebuildStyles()
	return true
}

func rebuildStyles() {
	Bold = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Foreground(Muted)
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)
	Hint = lipgloss.NewStyle().Foreground(Dim)

	TabActive = lipgloss.NewStyle().Foreground(Primary).Bold(true).Underline(true).Padding(0, 1)
	TabInactive = lipgloss.NewStyle().Foreground(Muted).Padding(0, 1)
	Title = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	PromptChar = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	PatientLabel = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	AssistantLabel = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Typing = lipgloss.NewStyle().Foreground(Muted).Italic(true)

	TableHeader = lipgloss.NewStyle().Foreground(Muted).Bold(true)
	RowSelected = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	StatusPending = lipgloss.NewStyle().Foreground(Warning)
	StatusReviewed = lipgloss.NewStyle().Foreground(Secondary)
	StatusClosed = lipgloss.NewStyle().Foreground(Muted)
	RedFlag = lipgloss.NewStyle().Foreground(Error).Bold(true)
	PendingMark = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	DetailPane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	ColumnBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	ColumnTitle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Card = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Dim).
		PaddingLeft(1)
	CardSelected = Card.BorderForeground(Primary)
	CardMeta = lipgloss.NewStyle().Foreground(Muted)
	ApprovedBadge = lipgloss.NewStyle().Foreground(Success).Bold(true)
	TypeBadge = lipgloss.NewStyle().Foreground(Secondary)

	ConfirmBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(0, 2)
	OptionSelected = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	OptionIdle = lipgloss.NewStyle().Foreground(Muted)

	StatusBar = lipgloss.NewStyle().Foreground(Muted).PaddingLeft(1)
	BudgetBar = lipgloss.NewStyle().Foreground(Primary)
	SignedOut = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Warning).
		Padding(1, 3)
}

// BudgetBarRender renders a usage bar like: ██████░░░░
func BudgetBarRender(utilization float64, width int) string {
	if utilization < 0 {
		utilization = 0
	}
	filled := int(utilization * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	var color lipgloss.TerminalColor
	switch {
	case utilization >= 0.90:
		color = Error
	case utilization >= 0.75:
		color = Warning
	default:
		color = Primary
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(Dim).Render(strings.Repeat("░", empty))
}
