package common

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// maxTextMessage caps plain-text upstream errors, in bytes.
const maxTextMessage = 300

var messagePaths = []string{"error", "message", "error.message", "data.message", "msg"}

// ExtractMessage pulls a human readable message out of an upstream body.
// JSON bodies are probed for the usual fields; other bodies are used as raw
// text; an empty body falls back to the status text.
func ExtractMessage(body []byte, status int) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && gjson.Valid(trimmed) {
		doc := gjson.Parse(trimmed)
		for _, p := range messagePaths {
			if v := doc.Get(p); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	} else if trimmed != "" {
		return truncate(trimmed, maxTextMessage)
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("request failed: %s", strings.ToLower(text))
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
