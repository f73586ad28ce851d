package validators

import "strings"

// SanitizeString trims input and caps it at maxLen characters. The cut
// always lands on a rune boundary so the result stays valid UTF-8.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	runes := 0
	for i := range trimmed {
		if runes == maxLen {
			return trimmed[:i]
		}
		runes++
	}
	return trimmed
}
