package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/standings"
)

type StandingRepository interface {
	// ApplyResult adds one match's delta to the (team, season) row, creating
	// it when absent, and recomputes its win percentage.
	ApplyResult(ctx context.Context, exec SQLExecutor, delta models.StandingDelta) error
	// ListBySeason returns the season's standings joined with team name and
	// age group, ordered by win percentage descending.
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, ageGroup *string) ([]*models.Standing, error)
	UpdateRanks(ctx context.Context, exec SQLExecutor, rows []*models.Standing) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) ApplyResult(ctx context.Context, exec SQLExecutor, d models.StandingDelta) error {
	wins, losses := 0, 1
	if d.Won {
		wins, losses = 1, 0
	}
	query := `
		INSERT INTO standings
			(team_id, season_id, wins, losses, sets_won, sets_lost, points_scored, points_allowed, win_percentage, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (team_id, season_id) DO UPDATE SET
			wins           = standings.wins + EXCLUDED.wins,
			losses         = standings.losses + EXCLUDED.losses,
			sets_won       = standings.sets_won + EXCLUDED.sets_won,
			sets_lost      = standings.sets_lost + EXCLUDED.sets_lost,
			points_scored  = standings.points_scored + EXCLUDED.points_scored,
			points_allowed = standings.points_allowed + EXCLUDED.points_allowed,
			win_percentage = COALESCE(
				(standings.wins + EXCLUDED.wins)::double precision
				/ NULLIF(standings.wins + EXCLUDED.wins + standings.losses + EXCLUDED.losses, 0), 0),
			updated_at     = NOW()`

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		d.TeamID, d.SeasonID, wins, losses, d.SetsWon, d.SetsLost, d.PointsScored, d.PointsAllowed,
		standings.WinPercentage(wins, losses),
	)
	if err != nil {
		return fmt.Errorf("apply result for team %d season %d: %w", d.TeamID, d.SeasonID, mapPQError(err))
	}
	return nil
}

func (r *postgresStandingRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, ageGroup *string) ([]*models.Standing, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT s.id, s.team_id, s.season_id, s.wins, s.losses, s.sets_won, s.sets_lost,
		       s.points_scored, s.points_allowed, s.win_percentage, s.rank_in_age_group,
		       s.rank_in_division, s.updated_at, COALESCE(t.name, ''), COALESCE(t.age_group, '')
		FROM standings s
		LEFT JOIN teams t ON t.id = s.team_id
		WHERE s.season_id = $1`)
	args := []interface{}{seasonID}
	if ageGroup != nil {
		queryBuilder.WriteString(" AND t.age_group = $2")
		args = append(args, *ageGroup)
	}
	queryBuilder.WriteString(" ORDER BY s.win_percentage DESC, s.team_id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(
			&s.ID, &s.TeamID, &s.SeasonID, &s.Wins, &s.Losses, &s.SetsWon, &s.SetsLost,
			&s.PointsScored, &s.PointsAllowed, &s.WinPercentage, &s.RankInAgeGroup,
			&s.RankInDivision, &s.UpdatedAt, &s.TeamName, &s.AgeGroup,
		); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

func (r *postgresStandingRepository) UpdateRanks(ctx context.Context, exec SQLExecutor, rows []*models.Standing) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := r.getExecutor(exec).PrepareContext(ctx, `
		UPDATE standings SET rank_in_age_group = $1, rank_in_division = $2
		WHERE team_id = $3 AND season_id = $4`)
	if err != nil {
		return fmt.Errorf("UpdateRanks failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range rows {
		result, err := stmt.ExecContext(ctx, s.RankInAgeGroup, s.RankInDivision, s.TeamID, s.SeasonID)
		if err != nil {
			return fmt.Errorf("UpdateRanks failed for team %d: %w", s.TeamID, err)
		}
		if err := checkAffectedRows(result, ErrStandingNotFound); err != nil {
			return fmt.Errorf("UpdateRanks team %d: %w", s.TeamID, err)
		}
	}
	return nil
}
