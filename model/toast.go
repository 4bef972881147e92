package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vaultx/vaultx-term/style"
)

// ToastLevel classifies toast severity.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastWarning
	ToastError
)

const (
	maxToasts = 3
	toastTTL  = 4 * time.Second
)

type toast struct {
	title   string
	message string
	level   ToastLevel
	expiry  time.Time
}

// ToastsModel manages a queue of auto-dismissing toast notifications.
type ToastsModel struct {
	queue []toast
	now   func() time.Time
}

// NewToasts creates an empty ToastsModel.
func NewToasts() ToastsModel {
	return ToastsModel{now: time.Now}
}

func (m *ToastsModel) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// Add enqueues a toast. A toast identical to the newest one only refreshes
// its expiry. Oldest toasts are dropped past maxToasts.
func (m *ToastsModel) Add(title, message string, level ToastLevel) {
	expiry := m.clock().Add(toastTTL)
	if n := len(m.queue); n > 0 {
		last := &m.queue[n-1]
		if last.title == title && last.message == message && last.level == level {
			last.expiry = expiry
			return
		}
	}
	m.queue = append(m.queue, toast{title: title, message: message, level: level, expiry: expiry})
	if len(m.queue) > maxToasts {
		m.queue = m.queue[len(m.queue)-maxToasts:]
	}
}

// Tick prunes expired toasts. Call on every msg.Tick.
func (m *ToastsModel) Tick() {
	now := m.clock()
	alive := m.queue[:0]
	for _, t := range m.queue {
		if now.Before(t.expiry) {
			alive = append(alive, t)
		}
	}
	m.queue = alive
}

// Len is the number of visible toasts.
func (m ToastsModel) Len() int {
	return len(m.queue)
}

// HasToasts reports whether any toasts are visible.
func (m ToastsModel) HasToasts() bool {
	return len(m.queue) > 0
}

// View renders visible toasts as right-aligned colored lines.
func (m ToastsModel) View(termWidth int) string {
	if len(m.queue) == 0 {
		return ""
	}
	var lines []string
	for _, t := range m.queue {
		icon, color := toastIconColor(t.level)
		text := fmt.Sprintf(" %s %s ", icon, t.message)
		if t.title != "" {
			text = fmt.Sprintf(" %s %s: %s ", icon, t.title, t.message)
		}
		rendered := lipgloss.NewStyle().
			Foreground(color).
			Render(text)
		pad := termWidth - lipgloss.Width(rendered)
		if pad < 0 {
			pad = 0
		}
		lines = append(lines, strings.Repeat(" ", pad)+rendered)
	}
	return strings.Join(lines, "\n")
}

func toastIconColor(level ToastLevel) (string, lipgloss.TerminalColor) {
	switch level {
	case ToastWarning:
		return "⚠", style.Warning // ⚠
	case ToastError:
		return "✘", style.Error // ✘
	default:
		return "✓", style.Success // ✓
	}
}
