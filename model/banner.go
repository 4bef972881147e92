package model

import (
	"strings"

	"github.com/vaultx/vaultx-term/style"
)

// BannerModel renders the one-line header with the tab strip:
//
//	vaultx v0.3 · Intake  Inbox  Notes
type BannerModel struct {
	version string
	tabs    []string
	active  int
	badges  map[int]string
}

// NewBanner returns a banner for the given tab names.
func NewBanner(version string, tabs ...string) BannerModel {
	return BannerModel{version: version, tabs: tabs, badges: map[int]string{}}
}

// SetActive highlights tab i.
func (m *BannerModel) SetActive(i int) {
	m.active = i
}

// SetBadge shows a short badge after tab i, e.g. a pending count. Empty clears it.
func (m *BannerModel) SetBadge(i int, badge string) {
	if badge == "" {
		delete(m.badges, i)
		return
	}
	m.badges[i] = badge
}

// View renders the banner line.
func (m BannerModel) View() string {
	title := style.Title.Render("vaultx " + m.version)
	var tabs []string
	for i, name := range m.tabs {
		label := name
		if b, ok := m.badges[i]; ok {
			label += " " + b
		}
		if i == m.active {
			tabs = append(tabs, style.TabActive.Render(label))
		} else {
			tabs = append(tabs, style.TabInactive.Render(label))
		}
	}
	return title + style.Faint.Render(" · ") + strings.Join(tabs, "")
}
