package models

import "time"

// MatchStatus представляет жизненный цикл матча.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
	MatchStatusPostponed MatchStatus = "postponed"
)

type SetStatus string

const (
	SetStatusInProgress SetStatus = "in_progress"
	SetStatusCompleted  SetStatus = "completed"
)

type PointType string

const (
	PointTypeKill          PointType = "kill"
	PointTypeAce           PointType = "ace"
	PointTypeBlock         PointType = "block"
	PointTypeOpponentError PointType = "opponent_error"
	PointTypeTip           PointType = "tip"
	PointTypeOther         PointType = "other"
)

func (p PointType) Valid() bool {
	switch p {
	case PointTypeKill, PointTypeAce, PointTypeBlock, PointTypeOpponentError, PointTypeTip, PointTypeOther:
		return true
	}
	return false
}

// Match is one best-of-five contest between two teams. Bracket matches of
// later rounds are created before their teams are known, so both team
// references are nullable.
type Match struct {
	ID           int         `json:"id" db:"id"`
	HomeTeamID   *int        `json:"home_team_id" db:"home_team_id"`
	AwayTeamID   *int        `json:"away_team_id" db:"away_team_id"`
	Status       MatchStatus `json:"status" db:"status"`
	HomeSetsWon  int         `json:"home_sets_won" db:"home_sets_won"`
	AwaySetsWon  int         `json:"away_sets_won" db:"away_sets_won"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	TournamentID *int        `json:"tournament_id,omitempty" db:"tournament_id"`
	SeasonID     *int        `json:"season_id,omitempty" db:"season_id"`
	IsPlayoff    bool        `json:"is_playoff" db:"is_playoff"`

	// Bracket placement, only set on playoff matches.
	Round           *int    `json:"round,omitempty" db:"round"`
	BracketPosition *int    `json:"bracket_position,omitempty" db:"bracket_position"`
	RoundName       *string `json:"round_name,omitempty" db:"round_name"`

	CurrentSetID *int       `json:"current_set_id,omitempty" db:"current_set_id"`
	ScheduledAt  time.Time  `json:"scheduled_at" db:"scheduled_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// HasTeam reports whether teamID plays in this match.
func (m *Match) HasTeam(teamID int) bool {
	return (m.HomeTeamID != nil && *m.HomeTeamID == teamID) ||
		(m.AwayTeamID != nil && *m.AwayTeamID == teamID)
}

// TeamsDetermined reports whether both team slots are filled.
func (m *Match) TeamsDetermined() bool {
	return m.HomeTeamID != nil && m.AwayTeamID != nil
}

type Set struct {
	ID           int       `json:"id" db:"id"`
	MatchID      int       `json:"match_id" db:"match_id"`
	SetNumber    int       `json:"set_number" db:"set_number"`
	HomePoints   int       `json:"home_points" db:"home_points"`
	AwayPoints   int       `json:"away_points" db:"away_points"`
	Status       SetStatus `json:"status" db:"status"`
	WinnerTeamID *int      `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Point is append-only; HomeScore/AwayScore hold the set score right after it.
type Point struct {
	ID            int       `json:"id" db:"id"`
	SetID         int       `json:"set_id" db:"set_id"`
	ScoringTeamID int       `json:"scoring_team_id" db:"scoring_team_id"`
	PlayerID      *int      `json:"player_id,omitempty" db:"player_id"`
	PointType     PointType `json:"point_type" db:"point_type"`
	HomeScore     int       `json:"home_score" db:"home_score"`
	AwayScore     int       `json:"away_score" db:"away_score"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
