package brackets

import (
	"fmt"
	"sort"
	"time"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/standings"
)

// MaxAdvancing caps how many teams leave pool play when pools are ranked globally.
const MaxAdvancing = 8

// RoundGapThreshold separates rounds when a bracket has no stored round numbers.
const RoundGapThreshold = 2 * time.Hour

// RoundName labels a knockout round: the last round is the Championship,
// the one before it the Semifinal, anything earlier "Elimination Round n".
func RoundName(round, totalRounds int) string {
	switch round {
	case totalRounds:
		return "Championship"
	case totalRounds - 1:
		return "Semifinal"
	default:
		return fmt.Sprintf("Elimination Round %d", round)
	}
}

// NextSlot returns where the winner of the match at (round, position) plays
// next. Odd positions feed the home slot, even positions the away slot.
func NextSlot(round, position int) (nextRound, nextPosition int, home bool) {
	return round + 1, (position + 1) / 2, position%2 == 1
}

// SelectAdvancing picks the teams that leave pool play, in seed order.
// With exactly two pools the top two of each are crossed over
// (A1, B1, A2, B2) so that teams from the same pool cannot meet in the
// first round. Otherwise all teams are ranked together and the best
// min(NextPowerOfTwo(min(n, MaxAdvancing)), n) advance.
func SelectAdvancing(table *standings.PoolTable) []standings.PoolRecord {
	if len(table.Labels) == 2 {
		first, second := table.Pools[table.Labels[0]], table.Pools[table.Labels[1]]
		seeds := make([]standings.PoolRecord, 0, 4)
		for rank := 0; rank < 2; rank++ {
			if rank < len(first) {
				seeds = append(seeds, first[rank])
			}
			if rank < len(second) {
				seeds = append(seeds, second[rank])
			}
		}
		return seeds
	}

	all := table.All()
	k := min(NextPowerOfTwo(min(len(all), MaxAdvancing)), len(all))
	return all[:k]
}

// GroupByTimeGap splits playoff matches into rounds by their scheduled time:
// a gap larger than gap between consecutive matches starts a new round.
// It reconstructs rounds for brackets stored without round numbers.
func GroupByTimeGap(matches []*models.Match, gap time.Duration) [][]*models.Match {
	if len(matches) == 0 {
		return nil
	}
	sorted := make([]*models.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ScheduledAt.Before(sorted[j].ScheduledAt) })

	rounds := [][]*models.Match{{sorted[0]}}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ScheduledAt.Sub(sorted[i-1].ScheduledAt) > gap {
			rounds = append(rounds, []*models.Match{})
		}
		rounds[len(rounds)-1] = append(rounds[len(rounds)-1], sorted[i])
	}
	return rounds
}
