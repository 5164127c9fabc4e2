package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText_DropsFencedCode(t *testing.T) {
	content := "I've added tests.\n```go\n// added error handling\nfunc x() {}\n```\nDone."
	text := PlainText(content)

	assert.Contains(t, text, "I've added tests.")
	assert.NotContains(t, text, "func x")
}

func TestPlainText_KeepsInlineCodeText(t *testing.T) {
	assert.Equal(t, "Updated styles.css for mobile", PlainText("Updated `styles.css` for mobile"))
}

func TestPlainText_HTML(t *testing.T) {
	content := `<ul><li>Added <b>dark mode</b></li><li>Fixed tests</li></ul><script>var fixed = "error handling";</script>`
	text := PlainText(content)

	assert.Contains(t, text, "Added dark mode")
	assert.Contains(t, text, "Fixed tests")
	assert.NotContains(t, text, "var fixed")

	claims := newExtractor().Extract(text)
	_, ok := findClaim(claims, "add", "styling")
	assert.True(t, ok)
}

func TestIsClaimSource(t *testing.T) {
	assert.True(t, IsClaimSource("assistant"))
	assert.True(t, IsClaimSource(" Assistant "))
	assert.False(t, IsClaimSource("user"))
	assert.False(t, IsClaimSource(""))
}
