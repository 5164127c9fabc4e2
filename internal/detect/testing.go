package detect

import "github.com/ppiankov/slopwatch/internal/model"

// TestingDetector verifies claims about tests and coverage
type TestingDetector struct {
	signatureDetector
}

// NewTestingDetector creates a testing detector
func NewTestingDetector(params model.ThresholdsConfig) *TestingDetector {
	d := &TestingDetector{signatureDetector{
		domain: model.DomainTesting,
		label:  "test",
		params: params,
		categories: []Category{
			{Name: "integration", Keywords: []string{"integration", "e2e", "end-to-end"}},
			{Name: "mock", Keywords: []string{"mock", "stub", "fixture", "fake"}},
			{Name: "unit", Keywords: []string{"unit", "test", "coverage", "assert"}},
		},
		signatures: []Signature{
			{Pattern: mustCompile(`\b(?:describe|it|test)\(\s*['"\x60]`), Category: "unit", Weight: 0.4, Description: "test case declaration"},
			{Pattern: mustCompile(`\bfunc\s+Test\w*\(\s*t\s+\*testing\.T`), Category: "unit", Weight: 0.4, Description: "Go test function"},
			{Pattern: mustCompile(`\bdef\s+test_\w+|@pytest\.`), Category: "unit", Weight: 0.4, Description: "pytest test"},
			{Pattern: mustCompile(`\bexpect\(|\bassert\w*[.(\s]|\brequire\.\w+\(|\bt\.(?:Error|Fatal)f?\(`), Category: "unit", Weight: 0.3, Description: "assertion"},
			{Pattern: mustCompile(`(?i)\bmock|jest\.fn|sinon\.|\bstub\b|gomock|fixture`), Category: "mock", Weight: 0.2, Description: "test double"},
			{Pattern: mustCompile(`(?i)supertest|request\(app\)|playwright|cypress|httptest\.`), Category: "integration", Weight: 0.2, Description: "integration harness"},
		},
	}}
	d.bind()
	return d
}

// Relevant accepts files that follow a test naming convention
func (d *TestingDetector) Relevant(change model.FileChangeEvent) bool {
	return isTestPath(change.Path)
}

func (d *TestingDetector) Analyze(claim model.Claim, changes []model.FileChangeEvent) model.Verdict {
	return d.analyzeWith(claim, changes, d.Relevant)
}
