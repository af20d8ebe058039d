package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DiffRecord is the unified diff of one file over a commit range
type DiffRecord struct {
	FilePath    string
	DiffContent string
	CommitRange string // Label of the range the diff was taken over
}

// Lines splits the diff into added and removed lines with the +/- marker removed.
// File header lines (+++ and ---) are not part of either set.
func (d *DiffRecord) Lines() (added, removed []string) {
	added = make([]string, 0)
	removed = make([]string, 0)
	for _, line := range strings.Split(d.DiffContent, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added = append(added, line[1:])
		case strings.HasPrefix(line, "-"):
			removed = append(removed, line[1:])
		}
	}
	return added, removed
}

// IsEmpty reports whether the diff has no content
func (d *DiffRecord) IsEmpty() bool {
	return strings.TrimSpace(d.DiffContent) == ""
}

// ID derives the stable identifier of an indexed diff from the file, the
// range label and a SHA-256 fingerprint of the diff text.
func (d *DiffRecord) ID() string {
	sum := sha256.Sum256([]byte(d.DiffContent))
	return d.FilePath + "_" + d.CommitRange + "_" + hex.EncodeToString(sum[:])[:fingerprintLen]
}

// ChangeLines renders up to limit changed lines in diff order as
// "Added: x" or "Removed: x" with surrounding whitespace trimmed.
func (d *DiffRecord) ChangeLines(limit int) []string {
	out := make([]string, 0, limit)
	for _, line := range strings.Split(d.DiffContent, "\n") {
		if len(out) >= limit {
			break
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			out = append(out, "Added: "+strings.TrimSpace(line[1:]))
		case strings.HasPrefix(line, "-"):
			out = append(out, "Removed: "+strings.TrimSpace(line[1:]))
		}
	}
	return out
}
