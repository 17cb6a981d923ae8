package subscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFullArgsShapeOrder(t *testing.T) {
	cfg := Default()
	filters := cfg.Plan(Input{
		Address:     "30617:aabb:repo",
		RootEventID: "root123",
		GroupingKey: "euc://r/x",
	})
	require.Len(t, filters, 4)
	assert.Equal(t, []string{"root123"}, filters[0].IDs)
	assert.Equal(t, []string{"root123"}, filters[1].Tags["e"])
	assert.Equal(t, []string{"30617:aabb:repo"}, filters[2].Tags["a"])
	assert.Equal(t, []string{"euc://r/x"}, filters[3].Tags["r"])
}

func TestPlanHasNoDuplicateNormalizedFilters(t *testing.T) {
	cfg := Default()
	cfg.EnableStackingFilters = true
	filters := cfg.Plan(Input{Address: "30617:aabb:repo", RootEventID: "root123"})

	seen := map[uint64]bool{}
	for _, f := range filters {
		h := canonicalHash(f)
		assert.False(t, seen[h], "duplicate normalized filter found")
		seen[h] = true
	}
}

func TestPlanOmitsSinceUntilLimit(t *testing.T) {
	cfg := Default()
	filters := cfg.Plan(Input{Address: "30617:aabb:repo"})
	for _, f := range filters {
		assert.Nil(t, f.Since)
		assert.Nil(t, f.Until)
		assert.Zero(t, f.Limit)
	}
}

func TestPlanEmptyInputYieldsNoFilters(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Plan(Input{}))
}
