package repositories

import (
	"context"
	"database/sql"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

// PointRepository only appends; points are never updated or deleted.
type PointRepository interface {
	Create(ctx context.Context, exec SQLExecutor, point *models.Point) error
	ListBySet(ctx context.Context, exec SQLExecutor, setID int) ([]*models.Point, error)
}

type postgresPointRepository struct {
	db *sql.DB
}

func NewPostgresPointRepository(db *sql.DB) PointRepository {
	return &postgresPointRepository{db: db}
}

func (r *postgresPointRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPointRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Point) error {
	query := `
		INSERT INTO points (set_id, scoring_team_id, player_id, point_type, home_score, away_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.SetID, p.ScoringTeamID, p.PlayerID, p.PointType, p.HomeScore, p.AwayScore,
	).Scan(&p.ID, &p.CreatedAt)
	return mapPQError(err)
}

func (r *postgresPointRepository) ListBySet(ctx context.Context, exec SQLExecutor, setID int) ([]*models.Point, error) {
	query := `
		SELECT id, set_id, scoring_team_id, player_id, point_type, home_score, away_score, created_at
		FROM points WHERE set_id = $1 ORDER BY id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]*models.Point, 0)
	for rows.Next() {
		var p models.Point
		if err := rows.Scan(&p.ID, &p.SetID, &p.ScoringTeamID, &p.PlayerID, &p.PointType, &p.HomeScore, &p.AwayScore, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}
