package extract

import "unicode"

// richerText is the fallback-strategy selection policy: whichever extraction
// yielded more non-whitespace characters wins. Kept as an explicit function
// so alternate heuristics can be swapped without touching extraction sites.
func richerText(a, b string) string {
	if nonWhitespaceLen(b) > nonWhitespaceLen(a) {
		return b
	}
	return a
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
