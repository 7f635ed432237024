package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entries returns teams 101, 102, ... as seeds 1, 2, ...
func entries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{TeamID: 101 + i}
	}
	return out
}

func byRound(matches []*BracketMatch) map[int][]*BracketMatch {
	rounds := make(map[int][]*BracketMatch)
	for _, m := range matches {
		rounds[m.Round] = append(rounds[m.Round], m)
	}
	return rounds
}

func TestSingleElimination_FourTeams(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Entries: entries(4)})
	require.NoError(t, err)

	rounds := byRound(matches)
	require.Len(t, rounds[1], 2)
	require.Len(t, rounds[2], 1)

	assert.Equal(t, 1, rounds[1][0].HomeSeed)
	assert.Equal(t, 4, rounds[1][0].AwaySeed)
	assert.Equal(t, 2, rounds[1][1].HomeSeed)
	assert.Equal(t, 3, rounds[1][1].AwaySeed)
	assert.Equal(t, "Semifinal", rounds[1][0].RoundName)

	final := rounds[2][0]
	assert.Equal(t, "Championship", final.RoundName)
	assert.True(t, final.IsPlaceholder)
	assert.Nil(t, final.HomeTeamID)
	assert.Nil(t, final.AwayTeamID)
	require.NotNil(t, final.SourceMatch1UID)
	require.NotNil(t, final.SourceMatch2UID)
	assert.Equal(t, "R1M1", *final.SourceMatch1UID)
	assert.Equal(t, "R1M2", *final.SourceMatch2UID)
}

func TestSingleElimination_FiveTeamsUseByes(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Entries: entries(5)})
	require.NoError(t, err)

	rounds := byRound(matches)
	require.Len(t, rounds[1], 1, "only seeds 4 and 5 play in round 1")
	first := rounds[1][0]
	assert.Equal(t, 4, first.HomeSeed)
	assert.Equal(t, 5, first.AwaySeed)
	assert.Equal(t, 2, first.OrderInRound)
	assert.Equal(t, "Elimination Round 1", first.RoundName)

	require.Len(t, rounds[2], 2)
	top := rounds[2][0]
	require.NotNil(t, top.HomeTeamID)
	assert.Equal(t, 101, *top.HomeTeamID, "seed 1 advances on a bye")
	assert.Nil(t, top.AwayTeamID)
	assert.True(t, top.IsPlaceholder)

	bottom := rounds[2][1]
	require.NotNil(t, bottom.HomeTeamID)
	require.NotNil(t, bottom.AwayTeamID)
	assert.Equal(t, 102, *bottom.HomeTeamID)
	assert.Equal(t, 103, *bottom.AwayTeamID)
	assert.False(t, bottom.IsPlaceholder)
	assert.Equal(t, "Semifinal", bottom.RoundName)

	require.Len(t, rounds[3], 1)
	assert.Equal(t, "Championship", rounds[3][0].RoundName)
}

func TestSingleElimination_NeverPairsATeamWithItself(t *testing.T) {
	for n := 2; n <= 16; n++ {
		matches, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Entries: entries(n)})
		require.NoError(t, err)
		for _, m := range matches {
			if m.HomeTeamID != nil && m.AwayTeamID != nil {
				assert.NotEqual(t, *m.HomeTeamID, *m.AwayTeamID, "n=%d %s", n, m.UID)
			}
		}
		size := NextPowerOfTwo(n)
		assert.Len(t, byRound(matches)[TotalRounds(size)], 1, "n=%d has a single final", n)
	}
}

func TestSingleElimination_NotEnoughTeams(t *testing.T) {
	_, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{Entries: entries(1)})
	assert.ErrorIs(t, err, ErrNotEnoughEntries)
}
