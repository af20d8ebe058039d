package analyzer

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

const minTermLen = 3

// ExtractTerms returns up to MaxTerms lowercase alphanumeric search terms for
// a change. Identifiers from the diff come first, followed by the file stem
// and the path components. The lines are joined with spaces, so assignments
// are only recognised at the start of the first line, and quoted routes
// never pass the alphanumeric filter.
func (a *Analyzer) ExtractTerms(added, removed []string, filePath string) []string {
	lines := make([]string, 0, len(added)+len(removed))
	lines = append(lines, added...)
	lines = append(lines, removed...)
	text := strings.Join(lines, " ")

	var candidates []string
	candidates = append(candidates, captures(a.rules.TermDefinitionPattern, text)...)
	candidates = append(candidates, captures(a.rules.AssignmentPattern, text)...)
	for _, quoted := range captures(a.rules.QuotedPathPattern, text) {
		if len(quoted) > 1 && strings.HasPrefix(quoted, "/") {
			candidates = append(candidates, quoted)
		}
	}
	candidates = append(candidates, captures(a.rules.ImportPattern, text)...)

	filePath = strings.ReplaceAll(filePath, "\\", "/")
	base := path.Base(filePath)
	candidates = append(candidates, strings.TrimSuffix(base, path.Ext(base)))
	for _, part := range strings.Split(filePath, "/") {
		if part != "" {
			candidates = append(candidates, part)
		}
	}

	limit := a.rules.MaxTerms
	if limit <= 0 {
		limit = DefaultRules().MaxTerms
	}
	terms := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, c := range candidates {
		c = strings.ToLower(c)
		if len(c) < minTermLen || !isAlnum(c) || seen[c] {
			continue
		}
		seen[c] = true
		terms = append(terms, c)
		if len(terms) == limit {
			break
		}
	}
	return terms
}

// captures returns the first capture group of every match
func captures(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
		}
	}
	return out
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
