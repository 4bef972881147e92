package notes

import (
	"fmt"
	"strings"

	"github.com/vaultx/vaultx-term/client"
)

// Field is one editable part of a card's content.
type Field struct {
	Key   string
	Label string
}

var fieldsByType = map[client.TemplateType][]Field{
	client.TypeSOAP: {
		{Key: "S", Label: "Subjective"},
		{Key: "O", Label: "Objective"},
		{Key: "A", Label: "Assessment"},
		{Key: "P", Label: "Plan"},
	},
	client.TypeSnippet: {
		{Key: "section", Label: "Section"},
		{Key: "text", Label: "Text"},
	},
	client.TypePrompt: {
		{Key: "system", Label: "System prompt"},
		{Key: "user", Label: "User prompt"},
	},
	client.TypeChecklist: {
		{Key: "items", Label: "Items"},
	},
}

// Fields lists the content fields of a card type, in form order.
func Fields(t client.TemplateType) []Field {
	return fieldsByType[t]
}

// LookupField finds the field key of type t.
func LookupField(t client.TemplateType, key string) (Field, bool) {
	for _, f := range fieldsByType[t] {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// FieldValue returns the single-line form of a content field. Checklist
// items are joined with "; " and done items carry a "[x] " prefix.
func FieldValue(c client.TemplateContent, key string) string {
	switch {
	case c.SOAP != nil:
		switch key {
		case "S":
			return c.SOAP.S
		case "O":
			return c.SOAP.O
		case "A":
			return c.SOAP.A
		case "P":
			return c.SOAP.P
		}
	case c.Snippet != nil:
		switch key {
		case "section":
			return c.Snippet.Section
		case "text":
			return c.Snippet.Text
		}
	case c.Prompt != nil:
		switch key {
		case "system":
			return c.Prompt.System
		case "user":
			return c.Prompt.User
		}
	case c.Checklist != nil:
		if key == "items" {
			return FormatChecklist(c.Checklist.Items)
		}
	}
	return ""
}

// SetField returns a copy of c, a card of type t, with field key set to
// value. c is not modified. A card without content starts from an empty
// block of its type.
func SetField(t client.TemplateType, c client.TemplateContent, key, value string) (client.TemplateContent, error) {
	if _, ok := LookupField(t, key); !ok {
		return client.TemplateContent{}, fmt.Errorf("%s cards have no field %q", TypeLabel(t), key)
	}
	if c.Kind() != t {
		empty, err := client.EmptyContent(t)
		if err != nil {
			return client.TemplateContent{}, err
		}
		c = empty
	}

	var out client.TemplateContent
	switch t {
	case client.TypeSOAP:
		soap := *c.SOAP
		switch key {
		case "S":
			soap.S = value
		case "O":
			soap.O = value
		case "A":
			soap.A = value
		case "P":
			soap.P = value
		}
		out.SOAP = &soap
	case client.TypeSnippet:
		snippet := *c.Snippet
		if key == "section" {
			snippet.Section = value
		} else {
			snippet.Text = value
		}
		out.Snippet = &snippet
	case client.TypePrompt:
		prompt := *c.Prompt
		if key == "system" {
			prompt.System = value
		} else {
			prompt.User = value
		}
		out.Prompt = &prompt
	case client.TypeChecklist:
		out.Checklist = &client.ChecklistContent{Items: ParseChecklist(value)}
	}
	return out, nil
}

// FormatChecklist renders items on one line.
func FormatChecklist(items []client.ChecklistItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Done {
			parts[i] = "[x] " + it.Text
		} else {
			parts[i] = it.Text
		}
	}
	return strings.Join(parts, "; ")
}

// ParseChecklist reads the form written by FormatChecklist. Blank items are
// dropped; "[ ] " marks an open item explicitly.
func ParseChecklist(s string) []client.ChecklistItem {
	items := []client.ChecklistItem{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		done := false
		switch {
		case strings.HasPrefix(strings.ToLower(part), "[x]"):
			done = true
			part = strings.TrimSpace(part[3:])
		case strings.HasPrefix(part, "[ ]"):
			part = strings.TrimSpace(part[3:])
		}
		if part == "" {
			continue
		}
		items = append(items, client.ChecklistItem{Text: part, Done: done})
	}
	return items
}

// ParseTags splits a comma-separated tag list. A leading "#" is dropped,
// blanks and repeats are skipped.
func ParseTags(s string) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
