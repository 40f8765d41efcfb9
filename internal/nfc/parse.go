package nfc

import "strings"

// extractField pulls a single value out of a JSON-shaped body by scanning
// for the quoted key, the colon after it, and the run up to the next comma
// or closing brace. It deliberately is not a JSON parser; the tap protocol
// carries one known key and malformed payloads must degrade to a parse
// error, never a crash.
func extractField(body, key string) string {
	search := `"` + key + `"`
	keyPos := strings.Index(body, search)
	if keyPos < 0 {
		return ""
	}

	rest := body[keyPos+len(search):]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return ""
	}

	value := rest[colon+1:]
	if end := strings.IndexAny(value, ",}"); end >= 0 {
		value = value[:end]
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '"', ' ', '\n', '\r':
			return -1
		}
		return r
	}, value)
}
