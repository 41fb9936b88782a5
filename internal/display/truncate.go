// Package display holds text helpers shared by the console listings.
package display

// Truncate shortens s to at most maxLength runes, marking the cut with "...".
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:max(maxLength, 0)])
	}
	return string(runes[:maxLength-3]) + "..."
}
