package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const defaultWidth = 100

type key struct {
	width int
	dark  bool
}

var (
	mu        sync.Mutex
	renderers = map[key]*glamour.TermRenderer{}
)

// renderer returns a cached renderer for width, or nil if glamour cannot
// build one.
func renderer(width int, dark bool) *glamour.TermRenderer {
	if width <= 0 {
		width = defaultWidth
	}
	k := key{width: width, dark: dark}

	mu.Lock()
	defer mu.Unlock()
	if r, ok := renderers[k]; ok {
		return r
	}
	styleName := "dark"
	if !dark {
		styleName = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	renderers[k] = r
	return r
}

// Render converts markdown text to styled ANSI output at the default width.
// Falls back to raw text if the renderer is unavailable.
func Render(md string) string {
	return RenderWidth(md, defaultWidth, true)
}

// RenderWidth renders md wrapped to width using the dark or light palette.
func RenderWidth(md string, width int, dark bool) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r := renderer(width, dark)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	// glamour pads with blank lines; trim for inline display.
	return strings.Trim(out, "\n")
}
