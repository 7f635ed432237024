package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/standings"
)

type StandingsService interface {
	// RecordMatchResult applies one team's result from a completed match. It
	// runs on the caller's executor so it commits with the match itself.
	RecordMatchResult(ctx context.Context, exec repositories.SQLExecutor, delta models.StandingDelta) error
	// RecalculateRanks recomputes every rank of the season from one consistent snapshot.
	RecalculateRanks(ctx context.Context, seasonID int) ([]*models.Standing, error)
	GetStandings(ctx context.Context, seasonID int, ageGroup *string) ([]*models.Standing, error)
}

type standingsService struct {
	tx           repositories.Transactor
	standingRepo repositories.StandingRepository
	logger       *slog.Logger
}

func NewStandingsService(
	tx repositories.Transactor,
	standingRepo repositories.StandingRepository,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		tx:           tx,
		standingRepo: standingRepo,
		logger:       logger,
	}
}

func (s *standingsService) RecordMatchResult(ctx context.Context, exec repositories.SQLExecutor, d models.StandingDelta) error {
	if d.TeamID <= 0 || d.SeasonID <= 0 {
		return fmt.Errorf("%w: team and season are required", ErrValidationFailed)
	}
	if d.SetsWon < 0 || d.SetsLost < 0 || d.PointsScored < 0 || d.PointsAllowed < 0 {
		return fmt.Errorf("%w: result counters cannot be negative", ErrValidationFailed)
	}
	if err := s.standingRepo.ApplyResult(ctx, exec, d); err != nil {
		return handleRepositoryError(err, "record match result")
	}
	return nil
}

func (s *standingsService) RecalculateRanks(ctx context.Context, seasonID int) ([]*models.Standing, error) {
	if seasonID <= 0 {
		return nil, fmt.Errorf("%w: invalid season id %d", ErrValidationFailed, seasonID)
	}

	var ranked []*models.Standing
	err := s.tx.WithinTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead}, func(exec repositories.SQLExecutor) error {
		rows, err := s.standingRepo.ListBySeason(ctx, exec, seasonID, nil)
		if err != nil {
			return err
		}
		standings.AssignRanks(rows)
		if err := s.standingRepo.UpdateRanks(ctx, exec, rows); err != nil {
			return err
		}
		ranked = rows
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("recalculate ranks for season %d", seasonID))
	}

	s.logger.InfoContext(ctx, "season ranks recalculated", slog.Int("season_id", seasonID), slog.Int("teams", len(ranked)))
	return ranked, nil
}

func (s *standingsService) GetStandings(ctx context.Context, seasonID int, ageGroup *string) ([]*models.Standing, error) {
	if seasonID <= 0 {
		return nil, fmt.Errorf("%w: invalid season id %d", ErrValidationFailed, seasonID)
	}
	rows, err := s.standingRepo.ListBySeason(ctx, nil, seasonID, ageGroup)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("list standings for season %d", seasonID))
	}
	return rows, nil
}
