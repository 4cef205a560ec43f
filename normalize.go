package edinet

import (
	"strings"
	"unicode"
)

// isSpace reports whitespace the way filings need it: every Unicode space
// (including U+3000 ideographic and U+00A0 no-break space) plus the BOM,
// which some EDINET documents leave inside text nodes.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// trimText trims whitespace and BOMs from both ends
func trimText(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// collapseWhitespace replaces every whitespace run with a single ASCII space
// and trims the result
func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pending := false
	for _, r := range text {
		if isSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeFieldText cleans an extracted field value for output.
// Line breaks become spaces, whitespace runs collapse to one space, and the
// result is trimmed: "東京都千代田区\n  丸の内一丁目" becomes "東京都千代田区 丸の内一丁目".
func NormalizeFieldText(text string) string {
	return collapseWhitespace(text)
}

// normalizeCombinedRepresentative prepares a "title + name" value for splitting.
// Colons (ASCII and full-width) separate title from name in some filings.
func normalizeCombinedRepresentative(raw string) string {
	raw = strings.NewReplacer(":", " ", "：", " ").Replace(raw)
	return collapseWhitespace(raw)
}
