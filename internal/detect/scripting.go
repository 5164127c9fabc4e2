package detect

import "github.com/ppiankov/slopwatch/internal/model"

// ScriptingDetector verifies claims about application logic
type ScriptingDetector struct {
	signatureDetector
}

// NewScriptingDetector creates a scripting detector
func NewScriptingDetector(params model.ThresholdsConfig) *ScriptingDetector {
	d := &ScriptingDetector{signatureDetector{
		domain:     model.DomainScripting,
		label:      "script or source",
		extensions: codeExtensions,
		params:     params,
		categories: []Category{
			{Name: "event", Keywords: []string{"event", "listener", "click", "handler", "submit"}},
			{Name: "async", Keywords: []string{"async", "api", "fetch", "request", "endpoint", "call"}},
			{Name: "state", Keywords: []string{"state", "store", "hook"}},
			{Name: "function", Keywords: []string{"function", "method", "helper", "logic", "callback"}},
			{Name: "module", Keywords: []string{"module", "import", "export", "component"}},
		},
		signatures: []Signature{
			{Pattern: mustCompile(`\bfunction\s*\*?\s*\w*\s*\(|\w+\s*=\s*(?:async\s*)?\([^)]*\)\s*=>|\bfunc\s+(?:\([^)]*\)\s*)?\w+\(|\bdef\s+\w+\(|\bfn\s+\w+\(`), Category: "function", Weight: 0.3, Description: "function definition"},
			{Pattern: mustCompile(`addEventListener\(|\bon[A-Z]\w*\s*=|\.on\(\s*['"]|@click|v-on:`), Category: "event", Weight: 0.3, Description: "event binding"},
			{Pattern: mustCompile(`\basync\b|\bawait\b|\.then\(|\bfetch\(|axios\.|http\.(?:Get|Post|NewRequest)`), Category: "async", Weight: 0.3, Description: "asynchronous call"},
			{Pattern: mustCompile(`use(?:State|Reducer|Effect|Memo)\(|setState\(|\bref\(|\breactive\(`), Category: "state", Weight: 0.3, Description: "state management"},
			{Pattern: mustCompile(`^\s*(?:import|export)\b|\brequire\(`), Category: "module", Weight: 0.1, Description: "module import/export"},
			{Pattern: mustCompile(`\bclass\s+\w+`), Category: "module", Weight: 0.2, Description: "class definition"},
			{Pattern: mustCompile(`\breturn\b`), Category: "function", Weight: 0.1, Description: "return statement"},
			{Pattern: mustCompile(`\b(?:if|switch|for|while)\s*\(|\bif\s+\w+`), Weight: 0.1, Description: "control flow"},
		},
	}}
	d.bind()
	return d
}
