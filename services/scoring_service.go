package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/brackets"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/lock"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/rules"
)

type ScorePointInput struct {
	MatchID   int              `json:"-"`
	TeamID    int              `json:"team_id"`
	PlayerID  *int             `json:"player_id,omitempty"`
	PointType models.PointType `json:"point_type,omitempty"`
}

type ScorePointResult struct {
	MatchID      int  `json:"match_id"`
	SetNumber    int  `json:"set_number"`
	HomePoints   int  `json:"home_points"`
	AwayPoints   int  `json:"away_points"`
	HomeSetsWon  int  `json:"home_sets_won"`
	AwaySetsWon  int  `json:"away_sets_won"`
	SetEnded     bool `json:"set_ended"`
	MatchEnded   bool `json:"match_ended"`
	WinnerTeamID *int `json:"winner_team_id,omitempty"`
}

// MatchState is a match with all of its sets, for scoreboards.
type MatchState struct {
	Match *models.Match `json:"match"`
	Sets  []*models.Set `json:"sets"`
}

type PointScoredEvent struct {
	MatchID       int              `json:"match_id"`
	SetNumber     int              `json:"set_number"`
	ScoringTeamID int              `json:"scoring_team_id"`
	PlayerID      *int             `json:"player_id,omitempty"`
	PointType     models.PointType `json:"point_type"`
	HomeScore     int              `json:"home_score"`
	AwayScore     int              `json:"away_score"`
}

type SetEndedEvent struct {
	MatchID      int `json:"match_id"`
	SetNumber    int `json:"set_number"`
	WinnerTeamID int `json:"winner_team_id"`
	HomePoints   int `json:"home_points"`
	AwayPoints   int `json:"away_points"`
	HomeSetsWon  int `json:"home_sets_won"`
	AwaySetsWon  int `json:"away_sets_won"`
}

type MatchEndedEvent struct {
	MatchID      int  `json:"match_id"`
	TournamentID *int `json:"tournament_id,omitempty"`
	WinnerTeamID int  `json:"winner_team_id"`
	HomeSetsWon  int  `json:"home_sets_won"`
	AwaySetsWon  int  `json:"away_sets_won"`
}

type MatchStatusChangedEvent struct {
	MatchID int                `json:"match_id"`
	Status  models.MatchStatus `json:"status"`
}

type ScoringService interface {
	StartMatch(ctx context.Context, matchID int) (*MatchState, error)
	ScorePoint(ctx context.Context, input ScorePointInput) (*ScorePointResult, error)
	// UpdateMatchStatus moves a scheduled match to canceled or postponed.
	UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error)
	GetMatchState(ctx context.Context, matchID int) (*MatchState, error)
}

type scoringService struct {
	tx             repositories.Transactor
	matchRepo      repositories.MatchRepository
	setRepo        repositories.SetRepository
	pointRepo      repositories.PointRepository
	tournamentRepo repositories.TournamentRepository
	standings      StandingsService
	locker         lock.MatchLocker
	notifier       *notifier
	metrics        metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

func NewScoringService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	pointRepo repositories.PointRepository,
	tournamentRepo repositories.TournamentRepository,
	standingsService StandingsService,
	locker lock.MatchLocker,
	publisher realtime.Publisher,
	m metrics.Metrics,
	logger *slog.Logger,
) ScoringService {
	return &scoringService{
		tx:             tx,
		matchRepo:      matchRepo,
		setRepo:        setRepo,
		pointRepo:      pointRepo,
		tournamentRepo: tournamentRepo,
		standings:      standingsService,
		locker:         locker,
		notifier:       newNotifier(publisher, m, logger),
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *scoringService) StartMatch(ctx context.Context, matchID int) (*MatchState, error) {
	unlock, err := s.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("start match %d", matchID))
	}
	defer unlock()

	var state *MatchState
	err = s.tx.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusScheduled {
			return fmt.Errorf("%w: match %d is %s, only scheduled matches can start", ErrInvalidState, matchID, match.Status)
		}
		if !match.TeamsDetermined() {
			return fmt.Errorf("%w: match %d has undetermined teams", ErrInvalidState, matchID)
		}

		first := &models.Set{MatchID: match.ID, SetNumber: 1, Status: models.SetStatusInProgress}
		if err := s.setRepo.Create(ctx, exec, first); err != nil {
			return err
		}

		startedAt := s.now()
		match.Status = models.MatchStatusLive
		match.StartedAt = &startedAt
		match.CurrentSetID = &first.ID
		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			return err
		}
		state = &MatchState{Match: match, Sets: []*models.Set{first}}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("start match %d", matchID))
	}

	s.logger.InfoContext(ctx, "match started", slog.Int("match_id", matchID))
	s.notifier.publish(ctx, realtime.MatchRoom(matchID), realtime.EventMatchStatusChanged,
		MatchStatusChangedEvent{MatchID: matchID, Status: models.MatchStatusLive})
	return state, nil
}

// scoreOutcome collects what a committed ScorePoint has to announce.
type scoreOutcome struct {
	result   *ScorePointResult
	point    PointScoredEvent
	setEnd   *SetEndedEvent
	matchEnd *MatchEndedEvent
	seasonID *int
}

func (s *scoringService) ScorePoint(ctx context.Context, input ScorePointInput) (*ScorePointResult, error) {
	began := s.now()
	if input.PointType == "" {
		input.PointType = models.PointTypeOther
	}
	if !input.PointType.Valid() {
		return nil, fmt.Errorf("%w: unknown point type %q", ErrValidationFailed, input.PointType)
	}
	if input.TeamID <= 0 {
		return nil, fmt.Errorf("%w: team_id is required", ErrValidationFailed)
	}

	unlock, err := s.locker.Lock(ctx, lock.MatchKey(input.MatchID))
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("score point in match %d", input.MatchID))
	}
	defer unlock()

	var out *scoreOutcome
	err = s.tx.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		var txErr error
		out, txErr = s.scorePointTx(ctx, exec, input)
		return txErr
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("score point in match %d", input.MatchID))
	}

	s.metrics.IncPointsScored()
	room := realtime.MatchRoom(input.MatchID)
	s.notifier.publish(ctx, room, realtime.EventPointScored, out.point)
	if out.setEnd != nil {
		s.metrics.IncSetsCompleted()
		s.notifier.publish(ctx, room, realtime.EventSetEnded, *out.setEnd)
	}
	if out.matchEnd != nil {
		s.metrics.IncMatchesCompleted()
		s.notifier.publish(ctx, room, realtime.EventMatchEnded, *out.matchEnd)
		if out.matchEnd.TournamentID != nil {
			s.notifier.publish(ctx, realtime.TournamentRoom(*out.matchEnd.TournamentID), realtime.EventMatchEnded, *out.matchEnd)
		}
		s.logger.InfoContext(ctx, "match completed",
			slog.Int("match_id", input.MatchID),
			slog.Int("winner_team_id", out.matchEnd.WinnerTeamID),
			slog.Int("home_sets", out.matchEnd.HomeSetsWon),
			slog.Int("away_sets", out.matchEnd.AwaySetsWon))

		if out.seasonID != nil {
			if _, err := s.standings.RecalculateRanks(ctx, *out.seasonID); err != nil {
				s.logger.WarnContext(ctx, "rank recalculation after match failed",
					slog.Int("season_id", *out.seasonID), slog.Any("error", err))
			}
		}
	}
	s.metrics.ObserveScorePointDuration(s.now().Sub(began).Seconds())
	return out.result, nil
}

func (s *scoringService) scorePointTx(ctx context.Context, exec repositories.SQLExecutor, input ScorePointInput) (*scoreOutcome, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, input.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusLive {
		return nil, fmt.Errorf("%w: match %d is %s, points can only be scored in live matches", ErrInvalidState, match.ID, match.Status)
	}
	if !match.TeamsDetermined() || !match.HasTeam(input.TeamID) {
		return nil, fmt.Errorf("%w: team %d, match %d", ErrInvalidTeam, input.TeamID, match.ID)
	}

	set, err := s.activeSet(ctx, exec, match)
	if err != nil {
		return nil, err
	}

	if input.TeamID == *match.HomeTeamID {
		set.HomePoints++
	} else {
		set.AwayPoints++
	}

	point := &models.Point{
		SetID:         set.ID,
		ScoringTeamID: input.TeamID,
		PlayerID:      input.PlayerID,
		PointType:     input.PointType,
		HomeScore:     set.HomePoints,
		AwayScore:     set.AwayPoints,
	}
	if err := s.pointRepo.Create(ctx, exec, point); err != nil {
		return nil, err
	}

	out := &scoreOutcome{
		point: PointScoredEvent{
			MatchID:       match.ID,
			SetNumber:     set.SetNumber,
			ScoringTeamID: input.TeamID,
			PlayerID:      input.PlayerID,
			PointType:     input.PointType,
			HomeScore:     set.HomePoints,
			AwayScore:     set.AwayPoints,
		},
	}

	setWinner := rules.SetWinner(set.SetNumber, set.HomePoints, set.AwayPoints)
	if setWinner != rules.SideNone {
		set.Status = models.SetStatusCompleted
		set.WinnerTeamID = teamOnSide(match, setWinner)
	}
	if err := s.setRepo.Update(ctx, exec, set); err != nil {
		return nil, err
	}

	if setWinner != rules.SideNone {
		if err := s.finishSet(ctx, exec, match, set, out); err != nil {
			return nil, err
		}
	}

	if err := s.matchRepo.Update(ctx, exec, match); err != nil {
		return nil, err
	}

	out.result = &ScorePointResult{
		MatchID:      match.ID,
		SetNumber:    set.SetNumber,
		HomePoints:   set.HomePoints,
		AwayPoints:   set.AwayPoints,
		HomeSetsWon:  match.HomeSetsWon,
		AwaySetsWon:  match.AwaySetsWon,
		SetEnded:     out.setEnd != nil,
		MatchEnded:   out.matchEnd != nil,
		WinnerTeamID: match.WinnerTeamID,
	}
	return out, nil
}

// activeSet returns the match's in-progress set, creating the next one when
// the match has none.
func (s *scoringService) activeSet(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*models.Set, error) {
	if match.CurrentSetID != nil {
		set, err := s.setRepo.GetByID(ctx, exec, *match.CurrentSetID)
		if err != nil {
			return nil, err
		}
		if set.Status == models.SetStatusInProgress {
			return set, nil
		}
	}

	sets, err := s.setRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		if set.Status == models.SetStatusInProgress {
			match.CurrentSetID = &set.ID
			return set, nil
		}
	}
	return s.openSet(ctx, exec, match, len(sets)+1)
}

func (s *scoringService) openSet(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, number int) (*models.Set, error) {
	if number > rules.MaxSets {
		return nil, fmt.Errorf("%w: match %d cannot have set %d", ErrSetLimitExceeded, match.ID, number)
	}
	set := &models.Set{MatchID: match.ID, SetNumber: number, Status: models.SetStatusInProgress}
	if err := s.setRepo.Create(ctx, exec, set); err != nil {
		return nil, err
	}
	match.CurrentSetID = &set.ID
	return set, nil
}

// finishSet recounts the sets won from the stored sets, then either completes
// the match or opens the next set.
func (s *scoringService) finishSet(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, set *models.Set, out *scoreOutcome) error {
	sets, err := s.setRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return err
	}

	homeSets, awaySets := 0, 0
	homePoints, awayPoints := 0, 0
	for _, st := range sets {
		homePoints += st.HomePoints
		awayPoints += st.AwayPoints
		if st.Status != models.SetStatusCompleted || st.WinnerTeamID == nil {
			continue
		}
		if *st.WinnerTeamID == *match.HomeTeamID {
			homeSets++
		} else {
			awaySets++
		}
	}
	match.HomeSetsWon, match.AwaySetsWon = homeSets, awaySets
	match.CurrentSetID = nil

	out.setEnd = &SetEndedEvent{
		MatchID:      match.ID,
		SetNumber:    set.SetNumber,
		WinnerTeamID: *set.WinnerTeamID,
		HomePoints:   set.HomePoints,
		AwayPoints:   set.AwayPoints,
		HomeSetsWon:  homeSets,
		AwaySetsWon:  awaySets,
	}

	matchWinner := rules.MatchWinner(homeSets, awaySets)
	if matchWinner == rules.SideNone {
		_, err := s.openSet(ctx, exec, match, set.SetNumber+1)
		return err
	}

	endedAt := s.now()
	match.Status = models.MatchStatusCompleted
	match.WinnerTeamID = teamOnSide(match, matchWinner)
	match.EndedAt = &endedAt
	out.matchEnd = &MatchEndedEvent{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		WinnerTeamID: *match.WinnerTeamID,
		HomeSetsWon:  homeSets,
		AwaySetsWon:  awaySets,
	}

	if match.SeasonID != nil {
		homeWon := matchWinner == rules.SideHome
		deltas := []models.StandingDelta{
			{TeamID: *match.HomeTeamID, SeasonID: *match.SeasonID, Won: homeWon, SetsWon: homeSets, SetsLost: awaySets, PointsScored: homePoints, PointsAllowed: awayPoints},
			{TeamID: *match.AwayTeamID, SeasonID: *match.SeasonID, Won: !homeWon, SetsWon: awaySets, SetsLost: homeSets, PointsScored: awayPoints, PointsAllowed: homePoints},
		}
		for _, d := range deltas {
			if err := s.standings.RecordMatchResult(ctx, exec, d); err != nil {
				return err
			}
		}
		out.seasonID = match.SeasonID
	}

	if match.IsPlayoff {
		return s.advanceWinner(ctx, exec, match)
	}
	return nil
}

// advanceWinner writes the winner of a playoff match into its next-round
// slot. When there is no next round the match was the championship and the
// tournament is completed.
func (s *scoringService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.TournamentID == nil || match.Round == nil || match.BracketPosition == nil {
		return nil
	}
	nextRound, nextPosition, home := brackets.NextSlot(*match.Round, *match.BracketPosition)

	next, err := s.matchRepo.GetPlayoffSlot(ctx, exec, *match.TournamentID, nextRound, nextPosition)
	if errors.Is(err, repositories.ErrMatchNotFound) {
		err := s.tournamentRepo.UpdateStatus(ctx, exec, *match.TournamentID, models.TournamentStatusInProgress, models.TournamentStatusCompleted)
		if errors.Is(err, repositories.ErrStatusConflict) {
			s.logger.WarnContext(ctx, "championship completed but tournament is not in progress",
				slog.Int("tournament_id", *match.TournamentID), slog.Int("match_id", match.ID))
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	if next.Status != models.MatchStatusScheduled {
		s.logger.WarnContext(ctx, "next bracket slot already started, winner not advanced",
			slog.Int("match_id", match.ID), slog.Int("next_match_id", next.ID))
		return nil
	}

	winner := *match.WinnerTeamID
	if home {
		next.HomeTeamID = &winner
	} else {
		next.AwayTeamID = &winner
	}
	return s.matchRepo.Update(ctx, exec, next)
}

func (s *scoringService) UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	if status != models.MatchStatusCanceled && status != models.MatchStatusPostponed {
		return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrValidationFailed, status)
	}

	unlock, err := s.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("update match %d status", matchID))
	}
	defer unlock()

	var updated *models.Match
	err = s.tx.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusScheduled {
			return fmt.Errorf("%w: match %d is %s, only scheduled matches can be %s", ErrInvalidState, matchID, match.Status, status)
		}
		match.Status = status
		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			return err
		}
		updated = match
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("update match %d status", matchID))
	}

	s.notifier.publish(ctx, realtime.MatchRoom(matchID), realtime.EventMatchStatusChanged,
		MatchStatusChangedEvent{MatchID: matchID, Status: status})
	return updated, nil
}

func (s *scoringService) GetMatchState(ctx context.Context, matchID int) (*MatchState, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("get match %d", matchID))
	}
	sets, err := s.setRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("list sets of match %d", matchID))
	}
	return &MatchState{Match: match, Sets: sets}, nil
}

func teamOnSide(match *models.Match, side rules.Side) *int {
	var id int
	switch side {
	case rules.SideHome:
		id = *match.HomeTeamID
	case rules.SideAway:
		id = *match.AwayTeamID
	default:
		return nil
	}
	return &id
}
