package patch

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/nevent"
)

// BuildMetadataEvents produces the §4.7 metadata pair from an analysis
// outcome: a merge event (kind 30411) on a clean or up-to-date/fast-forward
// result, and a conflict event (kind 30412) when conflicts were found. The
// host decides whether to actually publish either — this only builds the
// unsigned events.
func BuildMetadataEvents(codec nevent.Config, cra, rootID, targetBranch, baseBranch string, result MergeAnalysisResult) (mergeEvent, conflictEvent *nostr.Event, err error) {
	if result.HasConflicts {
		ev, err := codec.EncodeConflictMetadata(nevent.ConflictMetadata{
			CRA:           cra,
			RootID:        rootID,
			TargetBranch:  targetBranch,
			BaseBranch:    baseBranch,
			ConflictFiles: result.ConflictFiles,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, ev, nil
	}

	if result.Analysis == AnalysisError {
		return nil, nil, nil
	}

	var mergeCommit string
	if result.Analysis == AnalysisClean || result.FastForward {
		mergeCommit = result.TargetCommit
	}
	ev, err := codec.EncodeMergeMetadata(nevent.MergeMetadata{
		CRA:          cra,
		RootID:       rootID,
		TargetBranch: targetBranch,
		BaseBranch:   baseBranch,
		MergeCommit:  mergeCommit,
	})
	if err != nil {
		return nil, nil, err
	}
	return ev, nil, nil
}
