package watch

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/ppiankov/slopwatch/internal/model"
)

const devNull = "/dev/null"

// ChangesFromPatch turns a unified (multi-file) diff into change events, one
// per file, all stamped with the given time
func ChangesFromPatch(patch []byte, at time.Time) ([]model.FileChangeEvent, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	events := make([]model.FileChangeEvent, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		kind := model.ChangeModify
		path := stripPrefix(fd.NewName)
		switch {
		case fd.OrigName == devNull:
			kind = model.ChangeCreate
		case fd.NewName == devNull:
			kind = model.ChangeDelete
			path = stripPrefix(fd.OrigName)
		}
		if path == "" {
			continue
		}

		delta := summarizeHunks(fd.Hunks)
		events = append(events, model.FileChangeEvent{
			ID:           uuid.NewString(),
			Path:         path,
			Kind:         kind,
			DiffSummary:  delta.Summary,
			LinesAdded:   delta.Added,
			LinesRemoved: delta.Removed,
			OccurredAt:   at,
		})
	}
	return events, nil
}

// ChangeFromContent reports a whole file as newly created
func ChangeFromContent(path string, content []byte, at time.Time) (model.FileChangeEvent, error) {
	if len(content) > maxSnapshotBytes {
		return model.FileChangeEvent{}, fmt.Errorf("%s exceeds %d bytes", path, maxSnapshotBytes)
	}
	delta, err := computeDelta(path, nil, content)
	if err != nil {
		return model.FileChangeEvent{}, err
	}
	return model.FileChangeEvent{
		ID:           uuid.NewString(),
		Path:         path,
		Kind:         model.ChangeCreate,
		DiffSummary:  delta.Summary,
		LinesAdded:   delta.Added,
		LinesRemoved: delta.Removed,
		OccurredAt:   at,
	}, nil
}

func stripPrefix(name string) string {
	if name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}
