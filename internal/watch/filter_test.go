package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_DefaultExcludes(t *testing.T) {
	f := NewFilter(nil, nil)

	assert.True(t, f.SkipDir("node_modules"))
	assert.True(t, f.SkipDir("web/.git"))
	assert.False(t, f.SkipDir("src"))
	assert.False(t, f.SkipDir("."))

	assert.False(t, f.Match("node_modules/react/index.js"))
	assert.False(t, f.Match("src/.app.css.swp"))
	assert.False(t, f.Match("src/app.css~"))
	assert.True(t, f.Match("src/app.css"))
}

func TestFilter_IncludeExclude(t *testing.T) {
	f := NewFilter([]string{"src/**/*.ts", "*.css"}, []string{"**/*.gen.ts", "legacy"})

	assert.True(t, f.Match("src/a/b/app.ts"))
	assert.True(t, f.Match("styles/theme.css"))
	assert.False(t, f.Match("src/a/api.gen.ts"))
	assert.False(t, f.Match("README.md"))
	assert.True(t, f.SkipDir("legacy"))
}
