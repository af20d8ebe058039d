package analyzer

import (
	"fmt"
	"strings"

	"github.com/dshills/docdrift-mcp/pkg/types"
)

// Score weights
const (
	addedDefinitionWeight   = 3
	removedDefinitionWeight = 2
	apiChangeWeight         = 5
	configChangeWeight      = 3
	highPriorityWeight      = 1
	largeChangeWeight       = 2

	// RequiresDocumentationScore is the minimum score that asks for a doc update
	RequiresDocumentationScore = 3
	moderateScore              = 5
	majorScore                 = 8

	keywordsInReason = 3
)

// MinorChangesReason is reported when no rule triggers
const MinorChangesReason = "Minor code changes"

// Analyzer scores code diffs and extracts search terms from them.
// It is stateless and safe for concurrent use.
type Analyzer struct {
	rules Rules
}

// New creates an analyzer over the given rules
func New(rules Rules) *Analyzer {
	return &Analyzer{rules: rules}
}

// Rules returns the rule tables in use
func (a *Analyzer) Rules() Rules {
	return a.rules
}

// IsCodeFile reports whether a path is considered source code
func (a *Analyzer) IsCodeFile(filePath string) bool {
	return a.rules.IsCodeFile(filePath)
}

// Analyze decides whether a change to filePath is significant enough to need
// a documentation update. A change with no added or removed lines scores 0.
func (a *Analyzer) Analyze(added, removed []string, filePath string) types.SignificanceResult {
	if len(added) == 0 && len(removed) == 0 {
		return types.SignificanceResult{
			Reasons:    []string{MinorChangesReason},
			ChangeType: types.ChangeMinor,
		}
	}

	addedText := strings.ToLower(strings.Join(added, " "))

	res := types.SignificanceResult{
		AddedLineCount:   len(added),
		RemovedLineCount: len(removed),
	}

	res.NewFunctionCount = a.countDefinitions(added)
	res.RemovedFunctionCount = a.countDefinitions(removed)
	res.HasAPIChange = a.rules.APIPattern.MatchString(addedText)
	res.HasConfigChange = a.rules.ConfigPattern.MatchString(addedText)
	keywords := a.keywordsIn(addedText)

	var reasons []string
	if res.NewFunctionCount > 0 {
		res.Score += res.NewFunctionCount * addedDefinitionWeight
		reasons = append(reasons, fmt.Sprintf("Added %d new function/class definitions", res.NewFunctionCount))
	}
	if res.RemovedFunctionCount > 0 {
		res.Score += res.RemovedFunctionCount * removedDefinitionWeight
		reasons = append(reasons, fmt.Sprintf("Removed %d function/class definitions", res.RemovedFunctionCount))
	}
	if res.HasAPIChange {
		res.Score += apiChangeWeight
		reasons = append(reasons, "API endpoint changes detected")
	}
	if res.HasConfigChange {
		res.Score += configChangeWeight
		reasons = append(reasons, "Configuration changes detected")
	}
	if len(keywords) > 0 {
		res.Score += len(keywords)
		shown := keywords[:min(len(keywords), keywordsInReason)]
		reasons = append(reasons, "Significant keywords found: "+strings.Join(shown, ", "))
	}
	if hasSuffixAny(filePath, a.rules.HighPriorityExtensions) {
		res.Score += highPriorityWeight
	}
	if len(added) > a.rules.LargeChangeLines || len(removed) > a.rules.LargeChangeLines {
		res.Score += largeChangeWeight
		reasons = append(reasons, "Large code changes detected")
	}

	if len(reasons) == 0 {
		reasons = []string{MinorChangesReason}
	}
	res.Reasons = reasons
	res.RequiresDocumentation = res.Score >= RequiresDocumentationScore
	res.ChangeType = classify(res.Score)
	return res
}

func (a *Analyzer) countDefinitions(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	return len(a.rules.DefinitionPattern.FindAllStringIndex(strings.Join(lines, "\n"), -1))
}

// keywordsIn returns the vocabulary words present in text, in vocabulary order
func (a *Analyzer) keywordsIn(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	for _, kw := range a.rules.Keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func classify(score int) types.ChangeType {
	switch {
	case score >= majorScore:
		return types.ChangeMajor
	case score >= moderateScore:
		return types.ChangeModerate
	default:
		return types.ChangeMinor
	}
}
