package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/slopwatch/internal/model"
)

// Detector turns a (claim, changes) pair into a verdict for one claim domain.
// Implementations must be deterministic and must not panic.
type Detector interface {
	// Name returns the detector name
	Name() string

	// CanHandle checks if this detector understands the claim
	CanHandle(claim model.Claim) bool

	// Analyze classifies the claim against the correlated changes
	Analyze(claim model.Claim, changes []model.FileChangeEvent) model.Verdict
}

// Relevance is implemented by detectors that can tell whether a change
// plausibly belongs to their domain. The engine uses it as the
// relatedness predicate.
type Relevance interface {
	Relevant(change model.FileChangeEvent) bool
}

// Signature is one weighted diff pattern a detector looks for
type Signature struct {
	Pattern     *regexp.Regexp
	Domain      model.Domain
	Category    string // Sub-category it supports ("" = any)
	Weight      float64
	Description string
}

// Category is a finer classification of a claim inside a domain
type Category struct {
	Name     string
	Keywords []string
}

// match is a signature hit with the file it was found in
type match struct {
	description string
	category    string
	weight      float64
	path        string
}

// signatureDetector implements the shared analysis shape; each domain
// detector embeds it with its own file filter, categories and signatures.
type signatureDetector struct {
	domain     model.Domain
	label      string // Human name of the relevant files, used in reasons
	extensions map[string]bool
	markers    *regexp.Regexp // Diff content that makes any file in-domain
	categories []Category
	signatures []Signature
	params     model.ThresholdsConfig

	// extra contributes structural matches beyond regex signatures
	extra func(changes []model.FileChangeEvent) []match
}

func (d *signatureDetector) Name() string {
	return string(d.domain)
}

func (d *signatureDetector) CanHandle(claim model.Claim) bool {
	return claim.Domain == d.domain
}

// Relevant reports whether a change is plausibly in this detector's domain
func (d *signatureDetector) Relevant(change model.FileChangeEvent) bool {
	if d.extensions[change.Ext()] {
		return true
	}
	return d.markers != nil && d.markers.MatchString(change.DiffSummary)
}

func (d *signatureDetector) Analyze(claim model.Claim, changes []model.FileChangeEvent) model.Verdict {
	return d.analyzeWith(claim, changes, d.Relevant)
}

// analyzeWith runs the shared analysis shape with a domain-specific file filter
func (d *signatureDetector) analyzeWith(claim model.Claim, changes []model.FileChangeEvent, relevantFn func(model.FileChangeEvent) bool) model.Verdict {
	verdict := model.Verdict{
		ClaimID:      claim.ID,
		ClaimText:    claim.Text,
		Domain:       claim.Domain,
		DetectorName: d.Name(),
	}

	// 1. Filter in-domain changes
	relevant := filterChanges(changes, relevantFn)

	// 2. Nothing relevant was touched
	if len(relevant) == 0 {
		verdict.Status = model.StatusLie
		verdict.Confidence = d.params.LieConfidence
		verdict.Reason = fmt.Sprintf("claimed %s change but no relevant %s file touched", d.domain, d.label)
		verdict.Evidence = []string{fmt.Sprintf("0 of %d changes in window touched %s files", len(changes), d.label)}
		return verdict
	}

	// 3. Sub-category
	category := classify(claim, d.categories)

	lines := inspectedLines(claim, relevant)

	// 4b. Placeholder-only edits
	if placeholderOnly(claim, lines) {
		verdict.Status = model.StatusLie
		verdict.Confidence = d.params.PlaceholderConfidence
		verdict.Reason = fmt.Sprintf("claimed %s change but only placeholder comments were added", d.domain)
		verdict.Evidence = append(touchedFiles(relevant), placeholderEvidence(lines)...)
		return verdict
	}

	// 4. Weighted signatures
	matches := d.runSignatures(claim, relevant)
	if d.extra != nil {
		matches = append(matches, d.extra(relevant)...)
	}

	// 5. In-domain changes without any signature
	if len(matches) == 0 {
		verdict.Status = model.StatusPartial
		verdict.Confidence = d.params.PartialConfidence
		verdict.Reason = fmt.Sprintf("%s files changed but no %s signatures matched", d.label, d.domain)
		verdict.Evidence = touchedFiles(relevant)
		return verdict
	}

	// 6. Verified, scaled by matched weight
	var weight float64
	inCategory := false
	evidence := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		weight += m.weight
		if m.category == category {
			inCategory = true
		}
		evidence = append(evidence, fmt.Sprintf("%s (%s)", m.description, m.path))
	}

	confidence := d.params.VerifiedBase + d.params.WeightScale*weight
	if category != "" && !inCategory {
		confidence -= d.params.OffCategoryPenalty
		evidence = append(evidence, fmt.Sprintf("no %s-specific signature matched", category))
	}
	if confidence > d.params.MaxConfidence {
		confidence = d.params.MaxConfidence
	}

	verdict.Status = model.StatusVerified
	verdict.Confidence = model.ClampConfidence(confidence)
	verdict.Reason = fmt.Sprintf("%d %s signature(s) matched in %d file(s)", len(matches), d.domain, len(relevant))
	if category != "" {
		verdict.Reason += fmt.Sprintf(" for %s claim", category)
	}
	verdict.Evidence = evidence
	return verdict
}

// runSignatures matches every signature once against the inspected diff lines
func (d *signatureDetector) runSignatures(claim model.Claim, changes []model.FileChangeEvent) []match {
	var matches []match
	for _, sig := range d.signatures {
		for _, change := range changes {
			text := strings.Join(changeLines(claim, change), "\n")
			if text != "" && sig.Pattern.MatchString(text) {
				matches = append(matches, match{
					description: sig.Description,
					category:    sig.Category,
					weight:      sig.Weight,
					path:        change.Path,
				})
				break
			}
		}
	}
	return matches
}

// classify picks the first category whose keywords occur in the claim
func classify(claim model.Claim, categories []Category) string {
	text := strings.ToLower(claim.Text + " " + claim.Target)
	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				return c.Name
			}
		}
	}
	return ""
}

// changeLines returns the diff lines that can support the claim: removed
// lines for removals, added lines otherwise
func changeLines(claim model.Claim, change model.FileChangeEvent) []string {
	if claim.Action == model.ActionRemove {
		return change.RemovedLines()
	}
	return change.AddedLines()
}

func inspectedLines(claim model.Claim, changes []model.FileChangeEvent) []string {
	var lines []string
	for _, c := range changes {
		lines = append(lines, changeLines(claim, c)...)
	}
	return lines
}

func filterChanges(changes []model.FileChangeEvent, keep func(model.FileChangeEvent) bool) []model.FileChangeEvent {
	var out []model.FileChangeEvent
	for _, c := range changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// touchedFiles lists the distinct changed paths in stable order
func touchedFiles(changes []model.FileChangeEvent) []string {
	seen := make(map[string]bool)
	var files []string
	for _, c := range changes {
		if seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		files = append(files, fmt.Sprintf("touched %s (+%d/-%d)", c.Path, c.LinesAdded, c.LinesRemoved))
	}
	sort.Strings(files)
	return files
}

func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

func extSet(exts ...string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[e] = true
	}
	return set
}

// bind stamps the detector's domain on its signatures
func (d *signatureDetector) bind() {
	for i := range d.signatures {
		d.signatures[i].Domain = d.domain
	}
}
