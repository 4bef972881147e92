package style

import "github.com/charmbracelet/lipgloss"

// Theme defines a complete color palette for the TUI.
type Theme struct {
	Name                                        string
	Primary, Secondary, Success, Warning, Error lipgloss.TerminalColor
	Muted, Dim, Border                          lipgloss.TerminalColor
	MsgBorderPatient, MsgBorderAssistant        lipgloss.TerminalColor
	MsgBorderSystem                             lipgloss.TerminalColor
}

// Built-in themes.
var (
	darkTheme = Theme{
		Name:               "dark",
		Primary:            lipgloss.Color("#0EA5E9"), // sky-500
		Secondary:          lipgloss.Color("#14B8A6"), // teal-500
		Success:            lipgloss.Color("#22C55E"), // green-500
		Warning:            lipgloss.Color("#F59E0B"), // amber-500
		Error:              lipgloss.Color("#EF4444"), // red-500
		Muted:              lipgloss.Color("#6B7280"), // gray-500
		Dim:                lipgloss.Color("#374151"), // gray-700
		Border:             lipgloss.Color("#4B5563"), // gray-600
		MsgBorderPatient:   lipgloss.Color("#14B8A6"),
		MsgBorderAssistant: lipgloss.Color("#0EA5E9"),
		MsgBorderSystem:    lipgloss.Color("#374151"),
	}

	lightTheme = Theme{
		Name:               "light",
		Primary:            lipgloss.Color("#0369A1"), // sky-700
		Secondary:          lipgloss.Color("#0F766E"), // teal-700
		Success:            lipgloss.Color("#16A34A"), // green-600
		Warning:            lipgloss.Color("#D97706"), // amber-600
		Error:              lipgloss.Color("#DC2626"), // red-600
		Muted:              lipgloss.Color("#9CA3AF"), // gray-400
		Dim:                lipgloss.Color("#D1D5DB"), // gray-300
		Border:             lipgloss.Color("#9CA3AF"), // gray-400
		MsgBorderPatient:   lipgloss.Color("#0F766E"),
		MsgBorderAssistant: lipgloss.Color("#0369A1"),
		MsgBorderSystem:    lipgloss.Color("#D1D5DB"),
	}

	catppuccinTheme = Theme{
		Name:               "catppuccin",
		Primary:            lipgloss.Color("#89B4FA"), // blue
		Secondary:          lipgloss.Color("#94E2D5"), // teal
		Success:            lipgloss.Color("#A6E3A1"), // green
		Warning:            lipgloss.Color("#F9E2AF"), // yellow
		Error:              lipgloss.Color("#F38BA8"), // red
		Muted:              lipgloss.Color("#6C7086"), // overlay0
		Dim:                lipgloss.Color("#45475A"), // surface1
		Border:             lipgloss.Color("#585B70"), // surface2
		MsgBorderPatient:   lipgloss.Color("#94E2D5"),
		MsgBorderAssistant: lipgloss.Color("#89B4FA"),
		MsgBorderSystem:    lipgloss.Color("#45475A"),
	}
)

// Themes maps theme names to their definitions.
var Themes = map[string]Theme{
	"dark":       darkTheme,
	"light":      lightTheme,
	"catppuccin": catppuccinTheme,
}

// ThemeNames lists available themes in display order.
var ThemeNames = []string{"dark", "light", "catppuccin"}

// CurrentThemeName tracks the active theme name.
var CurrentThemeName = "dark"

// IsDark returns whether the current theme is dark.
func IsDark() bool {
	return CurrentThemeName != "light"
}
