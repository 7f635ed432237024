package standings

import "sort"

// PoolRecord is a team's record inside one tournament's pool phase. It is
// never persisted; pool tables are always recomputed from match results.
type PoolRecord struct {
	TeamID        int    `json:"team_id"`
	TeamName      string `json:"team_name,omitempty"`
	Pool          string `json:"pool"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	SetsWon       int    `json:"sets_won"`
	SetsLost      int    `json:"sets_lost"`
	PointsScored  int    `json:"points_scored"`
	PointsAllowed int    `json:"points_allowed"`
}

func (r PoolRecord) SetDifferential() int   { return r.SetsWon - r.SetsLost }
func (r PoolRecord) PointDifferential() int { return r.PointsScored - r.PointsAllowed }

// CompletedMatch is the result of one finished pool match.
type CompletedMatch struct {
	HomeTeamID   int
	AwayTeamID   int
	WinnerTeamID int
	HomeSetsWon  int
	AwaySetsWon  int
	HomePoints   int
	AwayPoints   int
}

// PoolLess orders pool records by wins, set differential and point
// differential, descending. Unlike SeasonLess it uses differentials, not ratios.
func PoolLess(a, b PoolRecord) bool {
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	if a.SetDifferential() != b.SetDifferential() {
		return a.SetDifferential() > b.SetDifferential()
	}
	if a.PointDifferential() != b.PointDifferential() {
		return a.PointDifferential() > b.PointDifferential()
	}
	return a.TeamID < b.TeamID
}

// SortPool sorts records in place with PoolLess.
func SortPool(records []PoolRecord) {
	sort.SliceStable(records, func(i, j int) bool { return PoolLess(records[i], records[j]) })
}

// PoolTable holds the sorted records of every pool.
type PoolTable struct {
	Labels []string                // pool labels in ascending order
	Pools  map[string][]PoolRecord // sorted by PoolLess
}

// All returns every record of every pool, sorted globally with PoolLess.
func (t *PoolTable) All() []PoolRecord {
	all := make([]PoolRecord, 0)
	for _, label := range t.Labels {
		all = append(all, t.Pools[label]...)
	}
	SortPool(all)
	return all
}

// TabulatePools accumulates the completed matches into per-pool records.
// Only teams that took part in at least one completed match appear.
// poolOf maps a team to its pool label.
func TabulatePools(matches []CompletedMatch, poolOf func(teamID int) string) *PoolTable {
	records := make(map[int]*PoolRecord)
	get := func(teamID int) *PoolRecord {
		r, ok := records[teamID]
		if !ok {
			r = &PoolRecord{TeamID: teamID, Pool: poolOf(teamID)}
			records[teamID] = r
		}
		return r
	}

	for _, m := range matches {
		home, away := get(m.HomeTeamID), get(m.AwayTeamID)
		if m.WinnerTeamID == m.HomeTeamID {
			home.Wins++
			away.Losses++
		} else {
			away.Wins++
			home.Losses++
		}
		home.SetsWon += m.HomeSetsWon
		home.SetsLost += m.AwaySetsWon
		away.SetsWon += m.AwaySetsWon
		away.SetsLost += m.HomeSetsWon
		home.PointsScored += m.HomePoints
		home.PointsAllowed += m.AwayPoints
		away.PointsScored += m.AwayPoints
		away.PointsAllowed += m.HomePoints
	}

	table := &PoolTable{Pools: make(map[string][]PoolRecord)}
	for _, r := range records {
		if _, ok := table.Pools[r.Pool]; !ok {
			table.Labels = append(table.Labels, r.Pool)
		}
		table.Pools[r.Pool] = append(table.Pools[r.Pool], *r)
	}
	sort.Strings(table.Labels)
	for _, label := range table.Labels {
		SortPool(table.Pools[label])
	}
	return table
}
