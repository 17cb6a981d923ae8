package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const simpleModifyDiff = `diff --git a/src/x.ts b/src/x.ts
index 1111111..2222222 100644
--- a/src/x.ts
+++ b/src/x.ts
@@ -1,3 +1,3 @@
 line one
-line two
+line TWO
 line three
`

const addDiff = `diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+hello
+world
`

const deleteDiff = `diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index 1111111..0000000
--- a/gone.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-hello
-world
`

const renameDiff = `diff --git a/old.txt b/new.txt
similarity index 100%
rename from old.txt
rename to new.txt
`

const binaryDiff = `diff --git a/image.png b/image.png
index 1111111..2222222 100644
GIT binary patch
literal 10
Qc$^Io0000000000000000
`

func TestParseModifyClassifiesHunkLines(t *testing.T) {
	changes, err := Parse(simpleModifyDiff)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeModify, changes[0].Kind)
	require.Equal(t, "src/x.ts", changes[0].Path)
	require.Len(t, changes[0].Hunks, 1)
	require.Equal(t, 1, changes[0].Hunks[0].OldStart)
}

func TestParseAddReconstructsNewContent(t *testing.T) {
	changes, err := Parse(addDiff)
	require.NoError(t, err)
	require.Equal(t, ChangeAdd, changes[0].Kind)
	require.Equal(t, "hello\nworld\n", NewFileContent(changes[0]))
}

func TestParseDeleteReconstructsOldContent(t *testing.T) {
	changes, err := Parse(deleteDiff)
	require.NoError(t, err)
	require.Equal(t, ChangeDelete, changes[0].Kind)
	require.Equal(t, "hello\nworld\n", OldFileContent(changes[0]))
}

func TestParseRenameIsUnsupported(t *testing.T) {
	changes, err := Parse(renameDiff)
	require.NoError(t, err)
	require.Equal(t, ChangeUnsupported, changes[0].Kind)
}

func TestParseBinaryIsUnsupported(t *testing.T) {
	changes, err := Parse(binaryDiff)
	require.NoError(t, err)
	require.Equal(t, ChangeUnsupported, changes[0].Kind)
}

func TestParseEmptyPatchErrors(t *testing.T) {
	_, err := Parse("   ")
	require.Error(t, err)
}

func TestParseMultipleFileChanges(t *testing.T) {
	combined := addDiff + deleteDiff
	changes, err := Parse(combined)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, ChangeAdd, changes[0].Kind)
	require.Equal(t, ChangeDelete, changes[1].Kind)
}

func TestSplitSubjectExtractsTitleAheadOfDiff(t *testing.T) {
	raw := "Add a greeting\n\nNeeded for the onboarding flow.\n\n" + addDiff
	subject, description := SplitSubject(raw)
	require.Equal(t, "Add a greeting", subject)
	require.Equal(t, "Needed for the onboarding flow.", description)
}
