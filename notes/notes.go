// Package notes holds the board logic for clinical note templates: column
// ordering, filtering and the one-line card texts.
package notes

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vaultx/vaultx-term/client"
)

// DefaultColumns is the board layout used before the server's columns load.
var DefaultColumns = []client.Column{
	{ID: "backlog", Name: "Backlog", Position: 0},
	{ID: "drafting", Name: "Drafting", Position: 1},
	{ID: "clinical", Name: "Clinical Review", Position: 2},
	{ID: "approved", Name: "Approved (Ready)", Position: 3},
}

// Filters narrow the visible cards. Zero fields match everything.
type Filters struct {
	Query string
	Type  client.TemplateType
	Tag   string
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return strings.TrimSpace(f.Query) != "" || f.Type != "" || f.Tag != ""
}

// ServerQuery returns the server-side form of f.
func (f Filters) ServerQuery() client.TemplateQuery {
	return client.TemplateQuery{Q: strings.TrimSpace(f.Query), Type: f.Type, Tag: f.Tag}
}

func (f Filters) matchBase(t client.Template) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" &&
		!strings.Contains(strings.ToLower(t.Title), q) {
		return false
	}
	return f.Type == "" || t.Type == f.Type
}

// Match reports whether t passes every filter.
func (f Filters) Match(t client.Template) bool {
	if !f.matchBase(t) {
		return false
	}
	if f.Tag == "" {
		return true
	}
	for _, tag := range t.Tags {
		if tag == f.Tag {
			return true
		}
	}
	return false
}

// SortColumns returns cols ordered by position.
func SortColumns(cols []client.Column) []client.Column {
	out := append([]client.Column(nil), cols...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// ByColumn buckets the matching items per column id, newest first. Items
// whose column is unknown are left out.
func ByColumn(cols []client.Column, items []client.Template, f Filters) map[string][]client.Template {
	out := make(map[string][]client.Template, len(cols))
	for _, c := range cols {
		out[c.ID] = []client.Template{}
	}
	for _, t := range items {
		bucket, ok := out[t.ColumnID]
		if !ok || !f.Match(t) {
			continue
		}
		out[t.ColumnID] = append(bucket, t)
	}
	for id := range out {
		bucket := out[id]
		sort.SliceStable(bucket, func(i, j int) bool {
			return parseTime(bucket[i].UpdatedAt).After(parseTime(bucket[j].UpdatedAt))
		})
	}
	return out
}

// AvailableTags lists the tags of items that match the query and type
// filters, sorted. The tag filter itself is ignored so the choice stays open.
func AvailableTags(items []client.Template, f Filters) []string {
	seen := map[string]bool{}
	var tags []string
	for _, t := range items {
		if !f.matchBase(t) {
			continue
		}
		for _, tag := range t.Tags {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Neighbor returns the column id offset steps from current in board order.
func Neighbor(cols []client.Column, current string, offset int) (string, bool) {
	for i, c := range cols {
		if c.ID != current {
			continue
		}
		j := i + offset
		if j < 0 || j >= len(cols) {
			return "", false
		}
		return cols[j].ID, true
	}
	return "", false
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatUpdatedAgo renders the age of an ISO timestamp relative to now.
func FormatUpdatedAgo(iso string, now time.Time) string {
	ts := parseTime(iso)
	if ts.IsZero() {
		return "Updated just now"
	}
	mins := int(now.Sub(ts) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("Updated %dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("Updated %dh ago", hours)
	}
	return fmt.Sprintf("Updated %dd ago", hours/24)
}

// TypeLabel is the display name of a template type.
func TypeLabel(t client.TemplateType) string {
	switch t {
	case client.TypeSOAP:
		return "SOAP"
	case client.TypeSnippet:
		return "Snippet"
	case client.TypePrompt:
		return "Prompt"
	case client.TypeChecklist:
		return "Checklist"
	}
	return string(t)
}

// PreviewLine is a one-line summary of a card's content.
func PreviewLine(t client.Template) string {
	c := t.Content
	switch {
	case c.SOAP != nil:
		return "S: " + c.SOAP.S
	case c.Snippet != nil:
		return truncateRunes(c.Snippet.Text, 100)
	case c.Prompt != nil:
		line, _, _ := strings.Cut(c.Prompt.User, "\n")
		return line
	case c.Checklist != nil:
		items := c.Checklist.Items
		if len(items) > 2 {
			items = items[:2]
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = "• " + it.Text
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// NextType cycles the type filter: all, then each type in order.
func NextType(t client.TemplateType) client.TemplateType {
	if t == "" {
		return client.TemplateTypes[0]
	}
	for i, tt := range client.TemplateTypes {
		if tt == t && i+1 < len(client.TemplateTypes) {
			return client.TemplateTypes[i+1]
		}
	}
	return ""
}
