package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusRegistration TournamentStatus = "registration"
	TournamentStatusInProgress   TournamentStatus = "in_progress"
	TournamentStatusCompleted    TournamentStatus = "completed"
)

type TournamentFormat string

const (
	FormatPoolPlay   TournamentFormat = "pool_play"
	FormatBracket    TournamentFormat = "bracket"
	FormatRoundRobin TournamentFormat = "round_robin"
	FormatSwiss      TournamentFormat = "swiss"
)

// DefaultPool is used for registered teams without a pool label.
const DefaultPool = "A"

type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Format    TournamentFormat `json:"format" db:"format"`
	Status    TournamentStatus `json:"status" db:"status"`
	MaxTeams  *int             `json:"max_teams,omitempty" db:"max_teams"`
	SeasonID  *int             `json:"season_id,omitempty" db:"season_id"`
	StartDate time.Time        `json:"start_date" db:"start_date"`
	EndDate   time.Time        `json:"end_date" db:"end_date"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// TournamentTeam is a team's registration in a tournament.
type TournamentTeam struct {
	ID           int     `json:"id" db:"id"`
	TournamentID int     `json:"tournament_id" db:"tournament_id"`
	TeamID       int     `json:"team_id" db:"team_id"`
	PoolLabel    *string `json:"pool_label,omitempty" db:"pool_label"`
	Seed         *int    `json:"seed,omitempty" db:"seed"`

	// Заполняется из таблицы teams, в tournament_teams не хранится.
	TeamName string `json:"team_name,omitempty" db:"-"`
}

// Pool returns the team's pool label, defaulting to pool "A".
func (tt *TournamentTeam) Pool() string {
	if tt.PoolLabel == nil || *tt.PoolLabel == "" {
		return DefaultPool
	}
	return *tt.PoolLabel
}

// Team is owned outside the competition engine and only read here.
type Team struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	ClubID   *int   `json:"club_id,omitempty" db:"club_id"`
	AgeGroup string `json:"age_group" db:"age_group"`
}
