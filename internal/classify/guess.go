package classify

import (
	"path/filepath"
	"strings"
	"unicode"
)

// GuessTitle picks the first text line that looks like a document title,
// falling back to the filename stem.
func GuessTitle(text, filename string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		n := len([]rune(line))
		if n >= 10 && n <= 200 {
			return line
		}
	}
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

// GuessLanguage returns "zh" when more than 30% of the letters are CJK,
// otherwise "en". Good enough to decide whether a query or document needs
// translation.
func GuessLanguage(text string) string {
	if CJKRatio(text) > 0.3 {
		return "zh"
	}
	return "en"
}

// CJKRatio is the fraction of Han runes among all letter runes in s.
func CJKRatio(s string) float64 {
	var letters, cjk int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cjk) / float64(letters)
}
