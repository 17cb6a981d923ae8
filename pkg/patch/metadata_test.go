package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/nevent"
)

// TestBuildMetadataEventsClean is half of scenario S6: a clean analysis
// produces a 30411 merge event tagged a=<CRA>, e=<rootId>, and no conflict
// event.
func TestBuildMetadataEventsClean(t *testing.T) {
	codec := nevent.Default()
	result := MergeAnalysisResult{Analysis: AnalysisClean, CanMerge: true, TargetCommit: "deadbeef"}

	mergeEv, conflictEv, err := BuildMetadataEvents(codec, "cra1", "root1", "main", "main", result)
	require.NoError(t, err)
	require.NotNil(t, mergeEv)
	assert.Nil(t, conflictEv)

	m, err := codec.DecodeMergeMetadata(mergeEv)
	require.NoError(t, err)
	assert.Equal(t, "cra1", m.CRA)
	assert.Equal(t, "root1", m.RootID)
	assert.Equal(t, "deadbeef", m.MergeCommit)
}

// TestBuildMetadataEventsConflict is the other half of scenario S6: a
// conflicting analysis on src/x.ts produces a 30412 event carrying
// conflict-file=src/x.ts with matching a/e, and no merge event.
func TestBuildMetadataEventsConflict(t *testing.T) {
	codec := nevent.Default()
	result := MergeAnalysisResult{
		Analysis:      AnalysisConflicts,
		HasConflicts:  true,
		ConflictFiles: []string{"src/x.ts"},
	}

	mergeEv, conflictEv, err := BuildMetadataEvents(codec, "cra1", "root1", "main", "main", result)
	require.NoError(t, err)
	assert.Nil(t, mergeEv)
	require.NotNil(t, conflictEv)

	c, err := codec.DecodeConflictMetadata(conflictEv)
	require.NoError(t, err)
	assert.Equal(t, "cra1", c.CRA)
	assert.Equal(t, "root1", c.RootID)
	assert.Equal(t, []string{"src/x.ts"}, c.ConflictFiles)
}
