package watch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDelta_Modify(t *testing.T) {
	d, err := computeDelta("a.txt", []byte("a\nb\nc\n"), []byte("a\nB\nc\nd\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Added)
	assert.Equal(t, 1, d.Removed)
	assert.Equal(t, "-b\n+B\n+d", d.Summary)
}

func TestComputeDelta_CreateAndDelete(t *testing.T) {
	created, err := computeDelta("a.css", nil, []byte("body {}\n.nav {}\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, created.Added)
	assert.Zero(t, created.Removed)

	deleted, err := computeDelta("a.css", []byte("body {}\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted.Removed)
	assert.Equal(t, "-body {}", deleted.Summary)
}

func TestComputeDelta_Unchanged(t *testing.T) {
	d, err := computeDelta("a.txt", []byte("same\n"), []byte("same\n"))
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestComputeDelta_Binary(t *testing.T) {
	d, err := computeDelta("logo.png", []byte{0x89, 0x00, 0x01}, []byte{0x89, 0x00, 0x02})
	require.NoError(t, err)
	assert.True(t, d.Binary)
	assert.False(t, d.Empty())
	assert.Empty(t, d.Summary)
}

func TestComputeDelta_SummaryTruncated(t *testing.T) {
	line := strings.Repeat("x", 100) + "\n"
	d, err := computeDelta("big.txt", nil, []byte(strings.Repeat(line, 500)))
	require.NoError(t, err)

	assert.Equal(t, 500, d.Added)
	assert.LessOrEqual(t, len(d.Summary), maxSummaryBytes)
}

func TestComputeDelta_NoTrailingNewline(t *testing.T) {
	d, err := computeDelta("a.js", nil, []byte("x()"))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Added)
	assert.Zero(t, d.Removed)
	assert.Equal(t, "+x()", d.Summary)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(nil))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines([]byte("a\nb\n")))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines([]byte("a\nb")))
}
