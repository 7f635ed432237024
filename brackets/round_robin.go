package brackets

import (
	"context"
	"fmt"
	"sort"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates the pool-phase matches: inside each pool every team
// plays every other team exactly once, so a pool of n teams yields n(n-1)/2
// matches. Pools are processed in label order and teams keep their entry
// order; OrderInRound is a single sequence across all pools.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if len(params.Entries) < 2 {
		return nil, fmt.Errorf("round robin: %w (found %d)", ErrNotEnoughEntries, len(params.Entries))
	}

	pools := make(map[string][]int)
	labels := make([]string, 0)
	for _, e := range params.Entries {
		if _, ok := pools[e.Pool]; !ok {
			labels = append(labels, e.Pool)
		}
		pools[e.Pool] = append(pools[e.Pool], e.TeamID)
	}
	sort.Strings(labels)

	matches := make([]*BracketMatch, 0)
	matchOrder := 0

	for _, label := range labels {
		teams := pools[label]
		for i := 0; i < len(teams); i++ {
			for j := i + 1; j < len(teams); j++ {
				homeID, awayID := teams[i], teams[j]
				if homeID == awayID {
					continue
				}
				matchOrder++
				matches = append(matches, &BracketMatch{
					UID:          fmt.Sprintf("P%s_M%d_T%dvsT%d", label, matchOrder, homeID, awayID),
					OrderInRound: matchOrder,
					Pool:         label,
					HomeTeamID:   &homeID,
					AwayTeamID:   &awayID,
				})
			}
		}
	}

	return matches, nil
}
