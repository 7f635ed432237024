package models

import "time"

// Standing is a team's accumulated record for one season.
type Standing struct {
	ID             int       `json:"id" db:"id"`
	TeamID         int       `json:"team_id" db:"team_id"`
	SeasonID       int       `json:"season_id" db:"season_id"`
	Wins           int       `json:"wins" db:"wins"`
	Losses         int       `json:"losses" db:"losses"`
	SetsWon        int       `json:"sets_won" db:"sets_won"`
	SetsLost       int       `json:"sets_lost" db:"sets_lost"`
	PointsScored   int       `json:"points_scored" db:"points_scored"`
	PointsAllowed  int       `json:"points_allowed" db:"points_allowed"`
	WinPercentage  float64   `json:"win_percentage" db:"win_percentage"`
	RankInAgeGroup *int      `json:"rank_in_age_group,omitempty" db:"rank_in_age_group"`
	RankInDivision *int      `json:"rank_in_division,omitempty" db:"rank_in_division"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Optional linked data, not directly in the standings table.
	TeamName string `json:"team_name,omitempty" db:"-"`
	AgeGroup string `json:"age_group,omitempty" db:"-"`
}

// StandingDelta is one team's contribution from a single completed match.
type StandingDelta struct {
	TeamID        int
	SeasonID      int
	Won           bool
	SetsWon       int
	SetsLost      int
	PointsScored  int
	PointsAllowed int
}
