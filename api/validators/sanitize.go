package validators

import (
	"strings"
	"unicode/utf8"
)

// CleanText trims input, collapses internal whitespace runs and caps the
// result at maxRunes characters. Used for free text that ends up in ledger
// descriptions and gateway metadata.
func CleanText(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
