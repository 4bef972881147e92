package transcript

import (
	"encoding/json"
	"strings"

	"github.com/vaultx/vaultx-term/sse"
)

// ActionForFrame maps an agent-turn frame to a transcript action. It returns
// false for frames that carry nothing to apply: keepalives, unknown event
// types and token frames whose payload is malformed or has no text.
func ActionForFrame(f sse.Frame) (Action, bool) {
	switch f.Event {
	case "token":
		var payload struct {
			Text any `json:"text"`
		}
		if err := json.Unmarshal([]byte(f.Data), &payload); err != nil {
			return nil, false
		}
		text, ok := payload.Text.(string)
		if !ok || text == "" {
			return nil, false
		}
		return Token{Text: text}, true

	case "done":
		return Finish{}, true

	case "error":
		return StreamError{Message: errorMessage(f.Data)}, true
	}
	return nil, false
}

// errorMessage picks the most specific text out of an error payload.
func errorMessage(data string) string {
	if strings.TrimSpace(data) == "" {
		return UnknownErrorText
	}
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return data
	}
	if obj, ok := raw.(map[string]any); ok {
		for _, key := range []string{"error", "message"} {
			if s := stringish(obj[key]); s != "" {
				return s
			}
		}
	}
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	b, err := json.Marshal(raw)
	if err != nil || string(b) == "null" {
		return UnknownErrorText
	}
	return string(b)
}

func stringish(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
