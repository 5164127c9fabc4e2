package detect

import (
	"fmt"
	"strings"

	"github.com/ppiankov/slopwatch/internal/model"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"all": true, "some": true, "new": true, "now": true, "also": true, "from": true,
	"into": true, "your": true, "our": true, "its": true, "are": true, "was": true,
	"support": true, "properly": true, "correctly": true,
}

// GenericDetector is the fallback for claims no domain detector understands.
// It scores touched source files and target keywords found in the diff.
type GenericDetector struct {
	params model.ThresholdsConfig
}

// NewGenericDetector creates the fallback detector
func NewGenericDetector(params model.ThresholdsConfig) *GenericDetector {
	return &GenericDetector{params: params}
}

func (d *GenericDetector) Name() string {
	return string(model.DomainGeneric)
}

// CanHandle accepts every claim
func (d *GenericDetector) CanHandle(claim model.Claim) bool {
	return true
}

// Relevant accepts any tracked source file
func (d *GenericDetector) Relevant(change model.FileChangeEvent) bool {
	return relatedBySource(change)
}

func (d *GenericDetector) Analyze(claim model.Claim, changes []model.FileChangeEvent) model.Verdict {
	verdict := model.Verdict{
		ClaimID:      claim.ID,
		ClaimText:    claim.Text,
		Domain:       claim.Domain,
		DetectorName: d.Name(),
	}

	relevant := filterChanges(changes, d.Relevant)
	if len(relevant) == 0 {
		verdict.Status = model.StatusLie
		verdict.Confidence = d.params.LieConfidence
		verdict.Reason = "claimed change but no tracked source file touched"
		verdict.Evidence = []string{fmt.Sprintf("0 of %d changes in window touched source files", len(changes))}
		return verdict
	}

	lines := inspectedLines(claim, relevant)
	if placeholderOnly(claim, lines) {
		verdict.Status = model.StatusLie
		verdict.Confidence = d.params.PlaceholderConfidence
		verdict.Reason = "claimed change but only placeholder comments were added"
		verdict.Evidence = append(touchedFiles(relevant), placeholderEvidence(lines)...)
		return verdict
	}

	terms := targetTerms(claim.Target)
	var haystack strings.Builder
	for _, c := range relevant {
		haystack.WriteString(strings.ToLower(c.Path))
		haystack.WriteByte('\n')
	}
	haystack.WriteString(strings.ToLower(strings.Join(lines, "\n")))
	text := haystack.String()

	var found []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			found = append(found, term)
		}
	}

	score := d.params.FileChangeWeight
	if len(terms) > 0 {
		score += d.params.KeywordWeight * float64(len(found)) / float64(len(terms))
	}

	evidence := touchedFiles(relevant)
	if len(found) > 0 {
		evidence = append(evidence, fmt.Sprintf("target keywords in diff: %s", strings.Join(found, ", ")))
	}
	verdict.Evidence = evidence

	if score >= d.params.PassCutoff && len(found) > 0 {
		if score > d.params.MaxConfidence {
			score = d.params.MaxConfidence
		}
		verdict.Status = model.StatusVerified
		verdict.Confidence = model.ClampConfidence(score)
		verdict.Reason = fmt.Sprintf("%d file(s) changed, %d of %d target keyword(s) found", len(relevant), len(found), len(terms))
		return verdict
	}

	verdict.Status = model.StatusPartial
	verdict.Confidence = d.params.PartialConfidence
	verdict.Reason = "source files changed but claim target not found in diff"
	return verdict
}

// targetTerms splits a claim target into distinct significant words
func targetTerms(target string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(target), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	}) {
		w = strings.Trim(w, "-_")
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}
