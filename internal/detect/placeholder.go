package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/slopwatch/internal/model"
)

var (
	placeholderPattern = regexp.MustCompile(`(?i)\b(?:todo|fixme|xxx|hack|stub|placeholder|not implemented|implement me)\b`)
	commentPrefix      = regexp.MustCompile(`^\s*(?://|#|/\*|\*|<!--|--|;)`)
)

// placeholderOnly reports whether every inspected line is blank, a comment
// or a placeholder, with at least one placeholder present
func placeholderOnly(claim model.Claim, lines []string) bool {
	if claim.Action == model.ActionRemove {
		return false
	}

	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case placeholderPattern.MatchString(trimmed):
			found = true
		case commentPrefix.MatchString(trimmed):
		default:
			return false
		}
	}
	return found
}

func placeholderEvidence(lines []string) []string {
	var evidence []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if placeholderPattern.MatchString(trimmed) {
			evidence = append(evidence, fmt.Sprintf("placeholder: %q", trimmed))
		}
	}
	return evidence
}
