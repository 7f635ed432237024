package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

type TournamentRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// UpdateStatus moves the tournament from one status to another and fails
	// with ErrStatusConflict when it is not in the from status.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
	// ListTeams returns registrations in registration order, team names filled in.
	ListTeams(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentTeam, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, format, status, max_teams, season_id, start_date, end_date, created_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(&t.ID, &t.Name, &t.Format, &t.Status, &t.MaxTeams, &t.SeasonID, &t.StartDate, &t.EndDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return mapPQError(err)
	}
	return checkAffectedRows(result, fmt.Errorf("tournament %d is not %s: %w", id, from, ErrStatusConflict))
}

func (r *postgresTournamentRepository) ListTeams(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentTeam, error) {
	query := `
		SELECT tt.id, tt.tournament_id, tt.team_id, tt.pool_label, tt.seed, COALESCE(t.name, '')
		FROM tournament_teams tt
		LEFT JOIN teams t ON t.id = tt.team_id
		WHERE tt.tournament_id = $1
		ORDER BY tt.id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.TournamentTeam, 0)
	for rows.Next() {
		var tt models.TournamentTeam
		if err := rows.Scan(&tt.ID, &tt.TournamentID, &tt.TeamID, &tt.PoolLabel, &tt.Seed, &tt.TeamName); err != nil {
			return nil, err
		}
		teams = append(teams, &tt)
	}
	return teams, rows.Err()
}
