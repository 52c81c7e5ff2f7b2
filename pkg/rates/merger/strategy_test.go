package merger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(price float64, priority, weight int) GroupMember {
	return GroupMember{Price: decimal.NewFromFloat(price), Priority: priority, Weight: weight}
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"avg", "min", "max", "priority", "weight"} {
		strategy, err := StrategyByName(name)
		require.NoError(t, err, name)
		require.NotNil(t, strategy, name)
	}

	_, err := StrategyByName("median")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestAvg(t *testing.T) {
	result := Avg([]GroupMember{member(1, 0, 0), member(2, 0, 0), member(3, 0, 0)})
	assert.True(t, result.Equal(decimal.NewFromInt(2)))

	assert.True(t, Avg(nil).IsZero())
}

func TestMinMax(t *testing.T) {
	members := []GroupMember{member(5, 0, 0), member(1, 0, 0), member(9, 0, 0)}

	assert.True(t, Min(members).Equal(decimal.NewFromInt(1)))
	assert.True(t, Max(members).Equal(decimal.NewFromInt(9)))
}

func TestPriority_FirstWinsOnTie(t *testing.T) {
	members := []GroupMember{
		member(10, 2, 0),
		member(20, 2, 0),
		member(30, 1, 0),
	}

	assert.True(t, Priority(members).Equal(decimal.NewFromInt(10)))
}

func TestPriority_HighestScoreWins(t *testing.T) {
	members := []GroupMember{
		member(10, -1, 0),
		member(20, 3, 0),
		member(30, 1, 0),
	}

	assert.True(t, Priority(members).Equal(decimal.NewFromInt(20)))
}

func TestWeight_FirstWinsOnTie(t *testing.T) {
	members := []GroupMember{
		member(10, 0, 10),
		member(20, 0, 10),
	}

	assert.True(t, Weight(members).Equal(decimal.NewFromInt(10)))
}

func TestPriorityScoring(t *testing.T) {
	cfg := testConfig()
	cfg.Priorities = []string{"first", "second", "third"}
	m := newTestMerger(t, cfg, nil, nil)

	assert.Equal(t, 2, m.priority("first"))
	assert.Equal(t, 1, m.priority("second"))
	assert.Equal(t, 0, m.priority("third"))
	assert.Equal(t, -1, m.priority("unlisted"))
}

func TestSourceWeightDefault(t *testing.T) {
	m := newTestMerger(t, testConfig(), map[string]int{"known": 25}, nil)

	assert.Equal(t, 25, m.sourceWeight("known"))
	assert.Equal(t, defaultSourceWeight, m.sourceWeight("unknown"))
}
