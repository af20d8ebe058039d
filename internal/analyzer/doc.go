// Package analyzer decides whether a code diff needs a documentation update
// and which search terms describe it.
//
// Scoring is additive over the added and removed line sets of one file:
//
//	+3 per definition header added, +2 per definition header removed
//	+5 once if route markers appear in added text
//	+3 once if configuration words appear in added text
//	+1 per distinct vocabulary keyword in added text
//	+1 for a high priority source extension
//	+2 if either side has more than 20 lines
//
// A score of 3 or more requires documentation; 5 is moderate, 8 is major.
//
// All tables live in Rules so callers can tune them from configuration:
//
//	rules := analyzer.DefaultRules().WithKeywords("graphql")
//	a := analyzer.New(rules)
//	res := a.Analyze(added, removed, "api/routes.py")
//	terms := a.ExtractTerms(added, removed, "api/routes.py")
package analyzer
