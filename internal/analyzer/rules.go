package analyzer

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
)

// Rules holds the pattern tables the analyzer scores diffs with.
// A zero Rules is not usable; start from DefaultRules.
type Rules struct {
	// DefinitionPattern matches function, method and class headers at line start
	DefinitionPattern *regexp.Regexp

	// APIPattern matches route decorators and route registration calls
	APIPattern *regexp.Regexp

	// ConfigPattern matches configuration related words
	ConfigPattern *regexp.Regexp

	// Keywords is the significance vocabulary, in reporting order
	Keywords []string

	// HighPriorityExtensions earn a score bonus
	HighPriorityExtensions []string

	// CodeExtensions selects the files considered at all
	CodeExtensions []string

	// Term extraction patterns; each has one capture group
	TermDefinitionPattern *regexp.Regexp
	AssignmentPattern     *regexp.Regexp
	QuotedPathPattern     *regexp.Regexp
	ImportPattern         *regexp.Regexp

	// LargeChangeLines is the line count above which a change counts as large
	LargeChangeLines int

	// MaxTerms caps the extracted term list
	MaxTerms int
}

var defaultKeywords = []string{
	"function", "def", "class", "interface", "api", "endpoint", "route",
	"export", "import", "async", "await", "public", "private", "protected",
	"config", "settings", "env", "param", "return", "throw", "error",
	"deprecated", "todo", "fixme", "hack", "note", "warning",
}

// DefaultRules returns the built-in rule tables
func DefaultRules() Rules {
	return Rules{
		DefinitionPattern: regexp.MustCompile(
			`(?m)^\s*def\s+\w+|^\s*function\s+\w+|^\s*class\s+\w+|^\s*func\s+(?:\([^)]*\)\s*)?\w+`),
		APIPattern: regexp.MustCompile(
			`@app\.|@router\.|@route|\.route\(|\.get\(|\.post\(|\.put\(|\.delete\(`),
		ConfigPattern: regexp.MustCompile(`config|settings|env|environment`),
		Keywords:      append([]string(nil), defaultKeywords...),
		HighPriorityExtensions: []string{
			".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".go", ".rs",
		},
		CodeExtensions: []string{
			".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".cpp", ".c", ".h", ".go", ".rs", ".rb", ".php",
		},
		TermDefinitionPattern: regexp.MustCompile(`(?i)(?:def|function|class|func)\s+(?:\([^)]*\)\s*)?(\w+)`),
		AssignmentPattern:     regexp.MustCompile(`(?m)^\s*(\w+)\s*=`),
		QuotedPathPattern:     regexp.MustCompile(`["']([/\w\-.]+)["']`),
		ImportPattern:         regexp.MustCompile(`(?:import|from)\s+(\w+)`),
		LargeChangeLines:      20,
		MaxTerms:              10,
	}
}

// WithKeywords returns a copy of r with extra vocabulary appended.
// Keywords already present are ignored.
func (r Rules) WithKeywords(extra ...string) Rules {
	seen := make(map[string]bool, len(r.Keywords))
	keywords := make([]string, 0, len(r.Keywords)+len(extra))
	for _, kw := range r.Keywords {
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	r.Keywords = keywords
	return r
}

// WithDefinitionPatterns returns a copy of r whose definition pattern also
// matches each of the given expressions. Expressions are evaluated in
// multiline mode and should anchor with ^ themselves.
func (r Rules) WithDefinitionPatterns(exprs ...string) (Rules, error) {
	if len(exprs) == 0 {
		return r, nil
	}
	combined := r.DefinitionPattern.String()
	for _, expr := range exprs {
		if _, err := regexp.Compile(expr); err != nil {
			return r, fmt.Errorf("invalid definition pattern %q: %w", expr, err)
		}
		combined += "|" + expr
	}
	re, err := regexp.Compile(combined)
	if err != nil {
		return r, fmt.Errorf("failed to combine definition patterns: %w", err)
	}
	r.DefinitionPattern = re
	return r, nil
}

// WithCodeExtensions returns a copy of r that also treats the given extensions as code
func (r Rules) WithCodeExtensions(exts ...string) Rules {
	merged := append([]string(nil), r.CodeExtensions...)
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(merged, ext) {
			merged = append(merged, ext)
		}
	}
	r.CodeExtensions = merged
	return r
}

// IsCodeFile reports whether the path has one of the code extensions
func (r Rules) IsCodeFile(filePath string) bool {
	ext := path.Ext(filePath)
	if ext == "" {
		return false
	}
	return slices.Contains(r.CodeExtensions, ext)
}

func hasSuffixAny(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
