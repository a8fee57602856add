package utils

import (
	"fmt"
	"strings"
)

// FormatRate applies the display precision tiers:
// 8 decimals below 0.0001, 6 decimals below 1, 4 decimals otherwise.
func FormatRate(rate float64) string {
	switch {
	case rate < 0.0001:
		return fmt.Sprintf("%.8f", rate)
	case rate < 1:
		return fmt.Sprintf("%.6f", rate)
	default:
		return fmt.Sprintf("%.4f", rate)
	}
}

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as markup.
func EscapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}
