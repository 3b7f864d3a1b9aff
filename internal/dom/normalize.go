// File: internal/dom/normalize.go
package dom

import "strings"

// Normalize lowercases and trims s. All keyword and phrase comparisons
// operate on normalized text.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// firstContained returns the first needle that is a substring of haystack.
func firstContained(haystack string, needles []string) (string, bool) {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return n, true
		}
	}
	return "", false
}

// XPathLiteral quotes s for use inside an XPath expression. Values containing
// both quote kinds are expressed with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
