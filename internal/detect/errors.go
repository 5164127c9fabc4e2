package detect

import "github.com/ppiankov/slopwatch/internal/model"

// ErrorsDetector verifies claims about error handling, retries and guards
type ErrorsDetector struct {
	signatureDetector
}

// NewErrorsDetector creates an error-handling detector
func NewErrorsDetector(params model.ThresholdsConfig) *ErrorsDetector {
	d := &ErrorsDetector{signatureDetector{
		domain:     model.DomainErrors,
		label:      "script or source",
		extensions: codeExtensions,
		params:     params,
		categories: []Category{
			{Name: "retry", Keywords: []string{"retry", "retries", "backoff"}},
			{Name: "guard", Keywords: []string{"null", "undefined", "edge case", "guard", "check"}},
			{Name: "fallback", Keywords: []string{"fallback", "graceful", "default"}},
			{Name: "exception", Keywords: []string{"error", "exception", "try", "catch", "crash"}},
		},
		signatures: []Signature{
			{Pattern: mustCompile(`\btry\s*[{:]|\bcatch\s*\(|\bexcept\b|\brescue\b|\bfinally\b`), Category: "exception", Weight: 0.4, Description: "try/catch block"},
			{Pattern: mustCompile(`\.catch\(`), Category: "exception", Weight: 0.3, Description: "promise rejection handler"},
			{Pattern: mustCompile(`\bif\s+err\s*!=\s*nil`), Category: "exception", Weight: 0.4, Description: "Go error check"},
			{Pattern: mustCompile(`\bthrow\s+new\s+\w*Error|\braise\s+\w+|errors\.New\(|fmt\.Errorf\(`), Category: "exception", Weight: 0.3, Description: "error raised"},
			{Pattern: mustCompile(`(?i)retry|backoff|\battempts?\b`), Category: "retry", Weight: 0.3, Description: "retry logic"},
			{Pattern: mustCompile(`(?:===?|!==?)\s*(?:null|undefined|nil|None)\b|\?\.|\?\?`), Category: "guard", Weight: 0.2, Description: "null guard"},
			{Pattern: mustCompile(`(?i)fallback|\|\|\s*['"\[{0-9]|\bdefault:`), Category: "fallback", Weight: 0.2, Description: "fallback value"},
			{Pattern: mustCompile(`(?i)console\.error\(|logger\.error|log\.(?:Print|Error|Warn)|slog\.(?:Error|Warn)|logging\.(?:error|exception)`), Weight: 0.2, Description: "error logging"},
		},
	}}
	d.bind()
	return d
}
