package types

import (
	"fmt"
	"strings"
)

// ChangeType classifies how large a code change is
type ChangeType string

const (
	ChangeMinor    ChangeType = "minor"
	ChangeModerate ChangeType = "moderate"
	ChangeMajor    ChangeType = "major"
)

// SignificanceResult is the verdict of the diff significance analyzer
type SignificanceResult struct {
	RequiresDocumentation bool
	Score                 int
	Reasons               []string
	ChangeType            ChangeType

	NewFunctionCount     int
	RemovedFunctionCount int
	HasAPIChange         bool
	HasConfigChange      bool

	AddedLineCount   int
	RemovedLineCount int
}

// Reason joins the triggered rule messages into one line
func (r *SignificanceResult) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// Summary describes the score and change volume
func (r *SignificanceResult) Summary() string {
	return fmt.Sprintf("Score: %d, %d lines added, %d lines removed", r.Score, r.AddedLineCount, r.RemovedLineCount)
}
