package watch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

const (
	maxSummaryBytes  = 8 << 10
	maxSnapshotBytes = 1 << 20
	binarySniffBytes = 8000
)

// Delta is the line-level difference between two snapshots of a file
type Delta struct {
	Summary string // "+"/"-" prefixed changed lines, truncated
	Added   int
	Removed int
	Binary  bool
}

// Empty reports whether nothing changed
func (d Delta) Empty() bool {
	return !d.Binary && d.Added == 0 && d.Removed == 0
}

// computeDelta renders a unified diff between the two contents and reads the
// changed lines back out of its hunks
func computeDelta(path string, before, after []byte) (Delta, error) {
	if isBinary(before) || isBinary(after) {
		return Delta{Binary: !bytes.Equal(before, after)}, nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  0,
	})
	if err != nil {
		return Delta{}, fmt.Errorf("diffing %s: %w", path, err)
	}
	if text == "" {
		return Delta{}, nil
	}

	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		return Delta{}, fmt.Errorf("parsing diff of %s: %w", path, err)
	}

	return summarizeHunks(fd.Hunks), nil
}

// summarizeHunks counts changed lines and keeps them, truncated, as the summary
func summarizeHunks(hunks []*diff.Hunk) Delta {
	var (
		delta Delta
		b     strings.Builder
	)
	for _, hunk := range hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if line == "" {
				continue
			}
			switch line[0] {
			case '+':
				delta.Added++
			case '-':
				delta.Removed++
			default:
				continue
			}
			if b.Len()+len(line)+1 <= maxSummaryBytes {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	delta.Summary = strings.TrimSuffix(b.String(), "\n")
	return delta
}

// splitLines splits content into newline-terminated lines; empty content has none
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}

func isBinary(content []byte) bool {
	if len(content) > binarySniffBytes {
		content = content[:binarySniffBytes]
	}
	return bytes.IndexByte(content, 0) >= 0
}
