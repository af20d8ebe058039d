package types

// SearchResult is a single documentation search hit
type SearchResult struct {
	Rank           int            `json:"rank"` // Position in result set (1-based)
	ID             string         `json:"id"`
	Document       string         `json:"document"` // Prefix stripped, truncated for display
	Metadata       map[string]any `json:"metadata"`
	RelevanceScore float64        `json:"relevance_score"` // 1 - cosine distance
}

// SearchResponse is the outcome of a documentation search
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// FilePath returns the file_path metadata value, if any
func (sr *SearchResult) FilePath() string {
	if sr.Metadata == nil {
		return ""
	}
	p, _ := sr.Metadata["file_path"].(string)
	return p
}

// Validate checks the rank and the relevance score range
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if !validScore(sr.RelevanceScore) {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// Relevance converts a cosine distance into a score in [0, 1]. Opposed
// vectors have a distance above 1 and score 0.
func Relevance(distance float64) float64 {
	score := 1 - distance
	switch {
	case score > 1:
		return 1
	case score > 0:
		return score
	default:
		return 0
	}
}

func validScore(score float64) bool {
	return score >= 0 && score <= 1
}
