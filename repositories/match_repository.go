package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

// MatchFilter narrows ListByTournament. Nil fields are not filtered on.
type MatchFilter struct {
	IsPlayoff *bool
	Status    *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// Update writes every mutable column if match.Version still matches the
	// stored version, then increments match.Version.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	// GetPlayoffSlot returns the locked playoff match at (round, position).
	GetPlayoffSlot(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, home_team_id, away_team_id, status, home_sets_won, away_sets_won, winner_team_id,
	tournament_id, season_id, is_playoff, round, bracket_position, round_name, current_set_id,
	scheduled_at, started_at, ended_at, version, created_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.Status, &m.HomeSetsWon, &m.AwaySetsWon, &m.WinnerTeamID,
		&m.TournamentID, &m.SeasonID, &m.IsPlayoff, &m.Round, &m.BracketPosition, &m.RoundName, &m.CurrentSetID,
		&m.ScheduledAt, &m.StartedAt, &m.EndedAt, &m.Version, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(home_team_id, away_team_id, status, tournament_id, season_id, is_playoff,
			 round, bracket_position, round_name, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.HomeTeamID, m.AwayTeamID, m.Status, m.TournamentID, m.SeasonID, m.IsPlayoff,
		m.Round, m.BracketPosition, m.RoundName, m.ScheduledAt,
	).Scan(&m.ID, &m.Version, &m.CreatedAt)
	return mapPQError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			home_team_id = $1, away_team_id = $2, status = $3, home_sets_won = $4, away_sets_won = $5,
			winner_team_id = $6, current_set_id = $7, scheduled_at = $8, started_at = $9, ended_at = $10,
			version = version + 1
		WHERE id = $11 AND version = $12`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		m.HomeTeamID, m.AwayTeamID, m.Status, m.HomeSetsWon, m.AwaySetsWon,
		m.WinnerTeamID, m.CurrentSetID, m.ScheduledAt, m.StartedAt, m.EndedAt,
		m.ID, m.Version,
	)
	if err != nil {
		return mapPQError(err)
	}
	if err := checkAffectedRows(result, fmt.Errorf("match %d: %w", m.ID, ErrVersionConflict)); err != nil {
		return err
	}
	m.Version++
	return nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.IsPlayoff != nil {
		queryBuilder.WriteString(" AND is_playoff = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.IsPlayoff)
		placeholderIndex++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
	}
	queryBuilder.WriteString(" ORDER BY scheduled_at ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) GetPlayoffSlot(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1 AND is_playoff AND round = $2 AND bracket_position = $3
		FOR UPDATE`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, round, position))
}
