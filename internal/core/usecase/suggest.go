package usecase

import "strings"

// enumerationMarkers are the characters stripped from the front of each
// suggestion line: list dashes, numbering, and trailing dots of "1.".
const enumerationMarkers = " -0123456789."

// ParseSuggestions splits raw model output into clean follow-up
// questions. Any count, including zero, is a valid outcome.
func ParseSuggestions(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.TrimSpace(strings.TrimLeft(line, enumerationMarkers))
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}
