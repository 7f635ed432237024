// Package rules holds the fixed competition parameters of indoor volleyball
// and the decisions derived from them.
package rules

const (
	SetPoints         = 25 // points needed to take sets 1-4
	DecidingSetPoints = 15 // points needed to take the fifth set
	MinLead           = 2
	SetsToWin         = 3 // best of five
	MaxSets           = 5
)

// Side identifies one of the two teams of a match.
type Side int

const (
	SideNone Side = iota
	SideHome
	SideAway
)

// SetTarget returns the number of points required to win the given set.
func SetTarget(setNumber int) int {
	if setNumber >= MaxSets {
		return DecidingSetPoints
	}
	return SetPoints
}

// SetWinner reports which side has won the set with the given running score,
// or SideNone while the set is still being played. Play continues past the
// target until one side leads by MinLead.
func SetWinner(setNumber, home, away int) Side {
	high, low := max(home, away), min(home, away)
	if high < SetTarget(setNumber) || high-low < MinLead {
		return SideNone
	}
	if home > away {
		return SideHome
	}
	return SideAway
}

// MatchWinner reports which side has taken the match from the sets won so far.
func MatchWinner(homeSets, awaySets int) Side {
	switch {
	case homeSets >= SetsToWin:
		return SideHome
	case awaySets >= SetsToWin:
		return SideAway
	default:
		return SideNone
	}
}
