package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vaultx/vaultx-term/markdown"
	"github.com/vaultx/vaultx-term/style"
	"github.com/vaultx/vaultx-term/transcript"
)

// ChatModel is a scrollable viewport that displays the intake transcript.
type ChatModel struct {
	vp      viewport.Model
	snap    transcript.Snapshot
	version uint64
	width   int
	height  int
}

// NewChat constructs a ChatModel sized to width x height.
func NewChat(width, height int) ChatModel {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return ChatModel{
		vp:     vp,
		width:  width,
		height: height,
	}
}

// SetSnapshot shows snap. Re-rendering is skipped when the version has not moved.
func (m *ChatModel) SetSnapshot(snap transcript.Snapshot) {
	if snap.Version == m.version && len(snap.Messages) == len(m.snap.Messages) && snap.State == m.snap.State {
		return
	}
	m.snap = snap
	m.version = snap.Version
	m.refresh()
}

// Snapshot is the transcript currently shown.
func (m ChatModel) Snapshot() transcript.Snapshot {
	return m.snap
}

// SetSize resizes the underlying viewport.
func (m *ChatModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.vp.Width = width
	m.vp.Height = height
	m.refresh()
}

// Init satisfies tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return nil
}

// Update forwards keyboard and mouse events to the viewport.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// View returns the rendered viewport content.
func (m ChatModel) View() string {
	return m.vp.View()
}

func (m *ChatModel) refresh() {
	m.vp.SetContent(m.renderAll())
	m.vp.GotoBottom()
}

func (m *ChatModel) renderAll() string {
	if len(m.snap.Messages) == 0 {
		return style.Faint.Render("  No messages yet.")
	}

	var sb strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderMessage(msg, m.width))
	}
	if m.snap.State == transcript.AwaitingFirstToken {
		sb.WriteString("\n\n")
		sb.WriteString(style.Typing.Render("Nurse is typing…"))
	}
	return sb.String()
}

func renderMessage(msg transcript.Message, width int) string {
	switch msg.Role {
	case transcript.RolePatient:
		return style.PatientLabel.Render("❯ You") + "\n" + msg.Content

	case transcript.RoleAssistant:
		label := style.AssistantLabel.Render("◈ Nurse")
		if msg.Content == "" {
			return label
		}
		return label + "\n" + markdown.RenderWidth(msg.Content, width, style.IsDark())

	default:
		return style.Faint.Render(msg.Content)
	}
}
