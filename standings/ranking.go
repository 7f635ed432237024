// Package standings computes season ranks and tournament pool tables.
package standings

import (
	"sort"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

// Ratio divides num by den; a zero den yields num itself so teams that never
// lost a set (or allowed a point) still rank above everyone else.
func Ratio(num, den int) float64 {
	if den == 0 {
		return float64(num)
	}
	return float64(num) / float64(den)
}

// WinPercentage is wins / (wins + losses), or 0 for a team with no results.
func WinPercentage(wins, losses int) float64 {
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses)
}

// Apply adds a match delta to an existing standing and recomputes the win percentage.
func Apply(s *models.Standing, d models.StandingDelta) {
	if d.Won {
		s.Wins++
	} else {
		s.Losses++
	}
	s.SetsWon += d.SetsWon
	s.SetsLost += d.SetsLost
	s.PointsScored += d.PointsScored
	s.PointsAllowed += d.PointsAllowed
	s.WinPercentage = WinPercentage(s.Wins, s.Losses)
}

// SeasonLess orders standings by win percentage, set ratio and point ratio,
// all descending. Team ID breaks any remaining tie so the order is total.
func SeasonLess(a, b *models.Standing) bool {
	if a.WinPercentage != b.WinPercentage {
		return a.WinPercentage > b.WinPercentage
	}
	if sa, sb := Ratio(a.SetsWon, a.SetsLost), Ratio(b.SetsWon, b.SetsLost); sa != sb {
		return sa > sb
	}
	if pa, pb := Ratio(a.PointsScored, a.PointsAllowed), Ratio(b.PointsScored, b.PointsAllowed); pa != pb {
		return pa > pb
	}
	return a.TeamID < b.TeamID
}

// AssignRanks fully recomputes RankInAgeGroup and RankInDivision for the given
// standings of one season. The slice is left sorted in division order.
func AssignRanks(rows []*models.Standing) {
	sort.SliceStable(rows, func(i, j int) bool { return SeasonLess(rows[i], rows[j]) })

	perGroup := make(map[string]int)
	for i, s := range rows {
		division := i + 1
		perGroup[s.AgeGroup]++
		group := perGroup[s.AgeGroup]
		s.RankInDivision = &division
		s.RankInAgeGroup = &group
	}
}
