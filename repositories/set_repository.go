package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/lib/pq"
)

type SetRepository interface {
	Create(ctx context.Context, exec SQLExecutor, set *models.Set) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Set, error)
	Update(ctx context.Context, exec SQLExecutor, set *models.Set) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Set, error)
	// ListByMatches returns the sets of several matches, ordered by match and set number.
	ListByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int) ([]*models.Set, error)
}

type postgresSetRepository struct {
	db *sql.DB
}

func NewPostgresSetRepository(db *sql.DB) SetRepository {
	return &postgresSetRepository{db: db}
}

func (r *postgresSetRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const setColumns = `id, match_id, set_number, home_points, away_points, status, winner_team_id, created_at`

func scanSet(row rowScanner) (*models.Set, error) {
	var s models.Set
	err := row.Scan(&s.ID, &s.MatchID, &s.SetNumber, &s.HomePoints, &s.AwayPoints, &s.Status, &s.WinnerTeamID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSetRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Set) error {
	query := `
		INSERT INTO sets (match_id, set_number, home_points, away_points, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		s.MatchID, s.SetNumber, s.HomePoints, s.AwayPoints, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
	return mapPQError(err)
}

func (r *postgresSetRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Set, error) {
	query := `SELECT ` + setColumns + ` FROM sets WHERE id = $1`
	return scanSet(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresSetRepository) Update(ctx context.Context, exec SQLExecutor, s *models.Set) error {
	query := `
		UPDATE sets SET home_points = $1, away_points = $2, status = $3, winner_team_id = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, s.HomePoints, s.AwayPoints, s.Status, s.WinnerTeamID, s.ID)
	if err != nil {
		return mapPQError(err)
	}
	return checkAffectedRows(result, ErrSetNotFound)
}

func (r *postgresSetRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Set, error) {
	query := `SELECT ` + setColumns + ` FROM sets WHERE match_id = $1 ORDER BY set_number ASC`
	return r.list(ctx, exec, query, matchID)
}

func (r *postgresSetRepository) ListByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int) ([]*models.Set, error) {
	if len(matchIDs) == 0 {
		return []*models.Set{}, nil
	}
	query := `SELECT ` + setColumns + ` FROM sets WHERE match_id = ANY($1) ORDER BY match_id ASC, set_number ASC`
	return r.list(ctx, exec, query, pq.Array(matchIDs))
}

func (r *postgresSetRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Set, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]*models.Set, 0)
	for rows.Next() {
		s, scanErr := scanSet(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}
