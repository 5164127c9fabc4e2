package detect

import (
	"path/filepath"
	"strings"

	"github.com/ppiankov/slopwatch/internal/model"
)

var (
	styleExtensions  = extSet(".css", ".scss", ".sass", ".less", ".styl", ".pcss")
	markupExtensions = extSet(".html", ".htm", ".vue", ".svelte", ".jsx", ".tsx")
	codeExtensions   = extSet(
		".js", ".mjs", ".cjs", ".ts", ".jsx", ".tsx", ".vue", ".svelte",
		".py", ".rb", ".go", ".java", ".kt", ".php", ".rs", ".swift", ".cs",
		".c", ".cc", ".cpp", ".h", ".hpp", ".scala", ".dart", ".lua", ".sh",
	)
	configExtensions = extSet(".json", ".yaml", ".yml", ".toml", ".ini", ".conf", ".env", ".xml", ".properties")
	docExtensions    = extSet(".md", ".mdx", ".rst", ".txt", ".adoc")
)

// isSourceFile reports whether a path is a tracked source, markup, config or doc file
func isSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		switch strings.ToLower(filepath.Base(path)) {
		case "dockerfile", "makefile", ".env", ".htaccess":
			return true
		}
		return false
	}
	return styleExtensions[ext] || markupExtensions[ext] || codeExtensions[ext] ||
		configExtensions[ext] || docExtensions[ext]
}

// isTestPath reports whether a path follows a common test file convention
func isTestPath(path string) bool {
	p := filepath.ToSlash(strings.ToLower(path))
	base := filepath.Base(p)
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.HasSuffix(base, "_test.py"),
		strings.HasSuffix(base, "_spec.rb"),
		strings.HasSuffix(base, "test.java"),
		strings.HasSuffix(base, "tests.cs"):
		return true
	}
	for _, dir := range []string{"/test/", "/tests/", "/__tests__/", "/spec/", "/e2e/"} {
		if strings.Contains("/"+p, dir) {
			return true
		}
	}
	return false
}

func unionExt(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

// relatedBySource is the fallback relatedness predicate: any tracked source file
func relatedBySource(change model.FileChangeEvent) bool {
	return isSourceFile(change.Path)
}
