package edinet

import (
	"regexp"
	"strings"
)

// titleKeywords are fragments that mark a token as part of a corporate title
var titleKeywords = []string{
	"代表取締役",
	"取締役",
	"社長",
	"CEO",
	"ＣＥＯ",
	"COO",
	"ＣＯＯ",
	"CFO",
	"ＣＦＯ",
	"会長",
	"Chairman",
	"President",
	"Chief",
	"Executive",
	"Officer",
	"代表者",
	"役職",
}

// parenthesizedPattern matches "TITLE（NAME）" with full-width parentheses
var parenthesizedPattern = regexp.MustCompile(`^(.+?)（(.+?)）$`)

// Representative is a split "title + name" value. Nil fields were not found.
type Representative struct {
	Name  *string `json:"name"`
	Title *string `json:"title"`
}

func looksLikeTitle(token string) bool {
	lower := strings.ToLower(token)
	for _, kw := range titleKeywords {
		if strings.Contains(token, kw) || strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// SplitTitleAndName splits a combined representative value such as
// "代表取締役社長 山田太郎" into title and name. It is a heuristic:
//
//   - "TITLE（NAME）" splits on the parentheses; when only the parenthesized part
//     looks like a title ("山田太郎（代表取締役社長）") the two sides are swapped
//   - a single token is a name
//   - otherwise the last title-like token ends the title, unless it is the final token
//   - otherwise the last two tokens are the name, unless both look like titles,
//     in which case the whole value is the name
func SplitTitleAndName(raw string) Representative {
	normalized := normalizeCombinedRepresentative(raw)
	if normalized == "" {
		return Representative{}
	}

	if m := parenthesizedPattern.FindStringSubmatch(normalized); m != nil {
		outer, inner := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if looksLikeTitle(inner) && !looksLikeTitle(outer) {
			outer, inner = inner, outer
		}
		return Representative{Title: optional(outer), Name: optional(inner)}
	}

	tokens := strings.Fields(normalized)
	if len(tokens) == 1 {
		return Representative{Name: optional(tokens[0])}
	}

	lastTitle := -1
	for i, tok := range tokens {
		if looksLikeTitle(tok) {
			lastTitle = i
		}
	}

	if lastTitle >= 0 && lastTitle < len(tokens)-1 {
		return Representative{
			Title: optional(strings.Join(tokens[:lastTitle+1], " ")),
			Name:  optional(strings.Join(tokens[lastTitle+1:], " ")),
		}
	}

	nameTokens := tokens[len(tokens)-2:]
	if looksLikeTitle(nameTokens[0]) && looksLikeTitle(nameTokens[1]) {
		return Representative{Name: optional(normalized)}
	}
	return Representative{
		Title: optional(strings.Join(tokens[:len(tokens)-2], " ")),
		Name:  optional(strings.Join(nameTokens, " ")),
	}
}
