package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/style"
)

// InputModel is a single-line text input with history navigation and
// completion.
//
// History navigation:
//   - Up arrow: walk backwards through submitted inputs
//   - Down arrow: walk forwards (towards the present)
//
// Completion:
//   - Tab cycles through the completions that start with the current text
type InputModel struct {
	ti         textinput.Model
	label      string
	history    []string
	historyIdx int // points one past the last entry when not navigating

	completions []string
	tabIdx      int // current completion cursor (-1 = none)
	tabMatches  []string
}

// NewInput returns a ready-to-use InputModel.
func NewInput(placeholder string) InputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	ti.Prompt = ""

	return InputModel{
		ti:     ti,
		tabIdx: -1,
	}
}

// SetLabel sets the text shown before the prompt character, e.g. "Rename".
func (m *InputModel) SetLabel(label string) {
	m.label = label
}

// SetPlaceholder replaces the placeholder text.
func (m *InputModel) SetPlaceholder(p string) {
	m.ti.Placeholder = p
}

// SetCompletions replaces the candidates used by Tab.
func (m *InputModel) SetCompletions(c []string) {
	m.completions = c
	m.resetTab()
}

// SetWidth limits the visible width of the field.
func (m *InputModel) SetWidth(w int) {
	m.ti.Width = w
}

// Focus gives keyboard focus to the input.
func (m *InputModel) Focus() tea.Cmd {
	return m.ti.Focus()
}

// Blur removes keyboard focus from the input.
func (m *InputModel) Blur() {
	m.ti.Blur()
}

// Focused reports whether the input has focus.
func (m InputModel) Focused() bool {
	return m.ti.Focused()
}

// Value returns the current raw text in the input field.
func (m InputModel) Value() string {
	return m.ti.Value()
}

// SetValue replaces the text and moves the cursor to the end.
func (m *InputModel) SetValue(s string) {
	m.ti.SetValue(s)
	m.ti.CursorEnd()
}

// Reset clears the input field and resets completion state.
func (m *InputModel) Reset() {
	m.historyIdx = len(m.history)
	m.ti.SetValue("")
	m.resetTab()
}

// Submit appends text to history and then clears the field.
func (m *InputModel) Submit(text string) {
	if text != "" {
		m.history = append(m.history, text)
	}
	m.Reset()
}

func (m *InputModel) resetTab() {
	m.tabIdx = -1
	m.tabMatches = nil
}

// Init satisfies tea.Model.
func (m InputModel) Init() tea.Cmd {
	return nil
}

// Update intercepts Up/Down for history and Tab for completion before
// delegating remaining keys to the underlying textinput.
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyUp:
			m = m.navigateHistory(-1)
			return m, nil

		case tea.KeyDown:
			m = m.navigateHistory(+1)
			return m, nil

		case tea.KeyTab:
			m = m.cycleComplete()
			return m, nil

		default:
			m.resetTab()
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// View renders the optional label, the prompt character and the field.
func (m InputModel) View() string {
	prompt := style.PromptChar.Render("❯ ")
	if m.label != "" {
		prompt = style.Hint.Render(m.label+" ") + prompt
	}
	return prompt + m.ti.View()
}

// navigateHistory moves the history cursor by delta (-1 = older, +1 = newer).
func (m InputModel) navigateHistory(delta int) InputModel {
	if len(m.history) == 0 {
		return m
	}

	next := m.historyIdx + delta
	switch {
	case next < 0:
		next = 0
	case next > len(m.history):
		next = len(m.history)
	}
	m.historyIdx = next

	if next == len(m.history) {
		m.ti.SetValue("")
	} else {
		m.ti.SetValue(m.history[next])
		m.ti.CursorEnd()
	}
	return m
}

func (m InputModel) cycleComplete() InputModel {
	if m.tabIdx == -1 || m.tabMatches == nil {
		m.tabMatches = matchPrefix(m.completions, m.ti.Value())
		if len(m.tabMatches) == 0 {
			return m
		}
		m.tabIdx = 0
	} else {
		m.tabIdx = (m.tabIdx + 1) % len(m.tabMatches)
	}

	m.ti.SetValue(m.tabMatches[m.tabIdx])
	m.ti.CursorEnd()
	return m
}

// matchPrefix returns the candidates starting with prefix, case-insensitively.
func matchPrefix(candidates []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	return out
}
