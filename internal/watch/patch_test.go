package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/slopwatch/internal/model"
)

const samplePatch = `diff --git a/src/theme.css b/src/theme.css
--- a/src/theme.css
+++ b/src/theme.css
@@ -1,2 +1,4 @@
 body {}
-.old {}
+@media (prefers-color-scheme: dark) {
+  body { background: #111; }
+}
diff --git a/src/new.ts b/src/new.ts
new file mode 100644
--- /dev/null
+++ b/src/new.ts
@@ -0,0 +1 @@
+export const x = 1;
diff --git a/src/gone.py b/src/gone.py
deleted file mode 100644
--- a/src/gone.py
+++ /dev/null
@@ -1 +0,0 @@
-print("bye")
`

func TestChangesFromPatch(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events, err := ChangesFromPatch([]byte(samplePatch), at)
	require.NoError(t, err)
	require.Len(t, events, 3)

	theme := events[0]
	assert.Equal(t, "src/theme.css", theme.Path)
	assert.Equal(t, model.ChangeModify, theme.Kind)
	assert.Equal(t, 3, theme.LinesAdded)
	assert.Equal(t, 1, theme.LinesRemoved)
	assert.Contains(t, theme.DiffSummary, "+@media (prefers-color-scheme: dark) {")
	assert.Equal(t, at, theme.OccurredAt)
	assert.NotEmpty(t, theme.ID)

	assert.Equal(t, "src/new.ts", events[1].Path)
	assert.Equal(t, model.ChangeCreate, events[1].Kind)
	assert.Equal(t, 1, events[1].LinesAdded)

	assert.Equal(t, "src/gone.py", events[2].Path)
	assert.Equal(t, model.ChangeDelete, events[2].Kind)
	assert.Equal(t, []string{`print("bye")`}, events[2].RemovedLines())
}

func TestChangesFromPatch_Empty(t *testing.T) {
	events, err := ChangesFromPatch(nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestChangeFromContent(t *testing.T) {
	ev, err := ChangeFromContent("styles/app.css", []byte(".a { color: red; }\n.b {}\n"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ChangeCreate, ev.Kind)
	assert.Equal(t, 2, ev.LinesAdded)
	assert.Equal(t, []string{".a { color: red; }", ".b {}"}, ev.AddedLines())
}
