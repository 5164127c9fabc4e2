package model

import (
	"path/filepath"
	"strings"
	"time"
)

// ChangeKind is the type of file-system modification
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
)

// FileChangeEvent is a debounced, diffed modification of a single file
type FileChangeEvent struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	Kind         ChangeKind `json:"kind"`
	DiffSummary  string     `json:"diff_summary,omitempty"` // "+"/"-" prefixed changed lines, truncated
	LinesAdded   int        `json:"lines_added"`
	LinesRemoved int        `json:"lines_removed"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Ext returns the lower-cased file extension including the dot
func (e FileChangeEvent) Ext() string {
	return strings.ToLower(filepath.Ext(e.Path))
}

// AddedLines returns the added lines of the diff summary without the "+" prefix
func (e FileChangeEvent) AddedLines() []string {
	return diffLines(e.DiffSummary, '+')
}

// RemovedLines returns the removed lines of the diff summary without the "-" prefix
func (e FileChangeEvent) RemovedLines() []string {
	return diffLines(e.DiffSummary, '-')
}

func diffLines(summary string, prefix byte) []string {
	if summary == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(summary, "\n") {
		if len(line) > 0 && line[0] == prefix {
			lines = append(lines, line[1:])
		}
	}
	return lines
}
