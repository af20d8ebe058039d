package types

// NewDocumentationGroup is the group key for suggestions without a related document
const NewDocumentationGroup = "New Documentation Needed"

// Suggestion proposes a documentation file that may need an update after a code change
type Suggestion struct {
	CodeFile          string     `json:"code_file"`
	RelatedDoc        *string    `json:"related_doc"`
	RelevanceScore    float64    `json:"relevance_score"`
	Reason            string     `json:"suggestion"`
	DocPreview        *string    `json:"doc_preview"`
	DiffSummary       string     `json:"diff_summary"`
	IsInDocsDirectory bool       `json:"is_in_docs_directory"`
	CommitRange       string     `json:"commit_range"`
	ChangeType        ChangeType `json:"change_type"`
}

// GroupKey returns the document path suggestions are grouped under
func (s *Suggestion) GroupKey() string {
	if s.RelatedDoc == nil {
		return NewDocumentationGroup
	}
	return *s.RelatedDoc
}

// Validate checks that the suggestion names its code file and that the
// relevance score is within [0, 1]
func (s *Suggestion) Validate() error {
	if s.CodeFile == "" {
		return ErrMissingFileInfo
	}
	if !validScore(s.RelevanceScore) {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// Report is the outcome of a documentation check
type Report struct {
	TotalCodeChanges         int          `json:"total_code_changes"`
	Suggestions              []Suggestion `json:"documentation_suggestions"`
	AffectedDocs             []string     `json:"affected_docs"`
	DocsDirectorySuggestions []Suggestion `json:"docs_directory_suggestions"`
	NewDocsNeeded            []Suggestion `json:"new_docs_needed"`
	Summary                  string       `json:"summary"`
}
