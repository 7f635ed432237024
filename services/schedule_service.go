package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/brackets"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
)

// MatchSlotInterval separates consecutive matches on a schedule.
const MatchSlotInterval = 90 * time.Minute

type ScheduleResult struct {
	TournamentID int             `json:"tournament_id"`
	Matches      []*models.Match `json:"matches"`
}

type ScheduleGeneratedEvent struct {
	TournamentID int `json:"tournament_id"`
	MatchCount   int `json:"match_count"`
}

type ScheduleService interface {
	// GeneratePoolPlaySchedule creates the round-robin pool matches of a
	// tournament in registration and moves it to in_progress.
	GeneratePoolPlaySchedule(ctx context.Context, tournamentID int) (*ScheduleResult, error)
}

type scheduleService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	generator      brackets.BracketGenerator
	notifier       *notifier
	metrics        metrics.Metrics
	logger         *slog.Logger
}

func NewScheduleService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	publisher realtime.Publisher,
	m metrics.Metrics,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		generator:      brackets.NewRoundRobinGenerator(),
		notifier:       newNotifier(publisher, m, logger),
		metrics:        m,
		logger:         logger,
	}
}

func (s *scheduleService) GeneratePoolPlaySchedule(ctx context.Context, tournamentID int) (*ScheduleResult, error) {
	result := &ScheduleResult{TournamentID: tournamentID}

	err := s.tx.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		// Conditional transition first: a concurrent second call fails here.
		err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusRegistration, models.TournamentStatusInProgress)
		if errors.Is(err, repositories.ErrStatusConflict) {
			if _, getErr := s.tournamentRepo.GetByID(ctx, exec, tournamentID); getErr != nil {
				return getErr
			}
			return fmt.Errorf("%w: tournament %d is not in registration", ErrInvalidState, tournamentID)
		}
		if err != nil {
			return err
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		teams, err := s.tournamentRepo.ListTeams(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(teams) < 2 {
			return fmt.Errorf("%w: tournament %d has %d registered teams", ErrInsufficientTeams, tournamentID, len(teams))
		}

		entries := make([]brackets.Entry, 0, len(teams))
		for _, tt := range teams {
			entries = append(entries, brackets.Entry{TeamID: tt.TeamID, Pool: tt.Pool()})
		}
		generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Tournament: tournament, Entries: entries})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientTeams, err)
		}

		result.Matches = make([]*models.Match, 0, len(generated))
		for i, bm := range generated {
			match := &models.Match{
				HomeTeamID:   bm.HomeTeamID,
				AwayTeamID:   bm.AwayTeamID,
				Status:       models.MatchStatusScheduled,
				TournamentID: &tournament.ID,
				SeasonID:     tournament.SeasonID,
				IsPlayoff:    false,
				ScheduledAt:  tournament.StartDate.Add(time.Duration(i) * MatchSlotInterval),
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return fmt.Errorf("create pool match %s: %w", bm.UID, err)
			}
			result.Matches = append(result.Matches, match)
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("generate pool schedule for tournament %d", tournamentID))
	}

	s.metrics.IncSchedulesGenerated()
	s.logger.InfoContext(ctx, "pool play schedule generated",
		slog.Int("tournament_id", tournamentID), slog.Int("matches", len(result.Matches)))
	s.notifier.publish(ctx, realtime.TournamentRoom(tournamentID), realtime.EventScheduleGenerated,
		ScheduleGeneratedEvent{TournamentID: tournamentID, MatchCount: len(result.Matches)})
	return result, nil
}
