package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/brackets"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/standings"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/storage"
)

// PlayoffRoundGap separates the last match of a playoff round from the first
// match of the next one.
const PlayoffRoundGap = 3 * time.Hour

type BracketSeed struct {
	Seed     int    `json:"seed"`
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name,omitempty"`
	Pool     string `json:"pool"`
}

type GeneratedBracket struct {
	TournamentID int             `json:"tournament_id"`
	BracketSize  int             `json:"bracket_size"`
	Seeds        []BracketSeed   `json:"seeds"`
	Matches      []*models.Match `json:"matches"`
	SnapshotURL  string          `json:"snapshot_url,omitempty"`
}

type PoolStandings struct {
	Pool  string                 `json:"pool"`
	Teams []standings.PoolRecord `json:"teams"`
}

type BracketRound struct {
	Round   int             `json:"round"`
	Name    string          `json:"name"`
	Matches []*models.Match `json:"matches"`
}

type BracketView struct {
	Tournament *models.Tournament `json:"tournament"`
	Pools      []PoolStandings    `json:"pools"`
	Rounds     []BracketRound     `json:"rounds"`
}

type BracketGeneratedEvent struct {
	TournamentID int    `json:"tournament_id"`
	MatchCount   int    `json:"match_count"`
	SnapshotURL  string `json:"snapshot_url,omitempty"`
}

type BracketService interface {
	// GenerateBracketFromPools seeds a single-elimination bracket from the
	// completed pool matches of an in-progress tournament.
	GenerateBracketFromPools(ctx context.Context, tournamentID int) (*GeneratedBracket, error)
	// GetTournamentBracket returns pool standings and playoff rounds for display.
	GetTournamentBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type bracketService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	setRepo        repositories.SetRepository
	generator      brackets.BracketGenerator
	uploader       storage.FileUploader
	notifier       *notifier
	metrics        metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

// NewBracketService builds the bracket service. uploader may be nil, in which
// case no snapshot is stored.
func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	uploader storage.FileUploader,
	publisher realtime.Publisher,
	m metrics.Metrics,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		setRepo:        setRepo,
		generator:      brackets.NewSingleEliminationGenerator(),
		uploader:       uploader,
		notifier:       newNotifier(publisher, m, logger),
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *bracketService) GenerateBracketFromPools(ctx context.Context, tournamentID int) (*GeneratedBracket, error) {
	result := &GeneratedBracket{TournamentID: tournamentID}
	var tournament *models.Tournament

	err := s.tx.WithinTx(ctx, nil, func(exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.TournamentStatusInProgress {
			return fmt.Errorf("%w: tournament %d is %s, bracket requires in_progress", ErrInvalidState, tournamentID, tournament.Status)
		}

		playoff := true
		existing, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.MatchFilter{IsPlayoff: &playoff})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: tournament %d already has a bracket", ErrInvalidState, tournamentID)
		}

		pool, completed := false, models.MatchStatusCompleted
		poolMatches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.MatchFilter{IsPlayoff: &pool, Status: &completed})
		if err != nil {
			return err
		}
		if len(poolMatches) == 0 {
			return fmt.Errorf("%w: tournament %d", ErrNoCompletedGames, tournamentID)
		}

		teams, err := s.tournamentRepo.ListTeams(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		table, err := s.tabulatePools(ctx, exec, poolMatches, teams)
		if err != nil {
			return err
		}

		advancing := brackets.SelectAdvancing(table)
		if len(advancing) < 2 {
			return fmt.Errorf("%w: only %d team(s) advance from pool play", ErrInsufficientTeams, len(advancing))
		}

		entries := make([]brackets.Entry, len(advancing))
		result.Seeds = make([]BracketSeed, len(advancing))
		for i, rec := range advancing {
			entries[i] = brackets.Entry{TeamID: rec.TeamID, Pool: rec.Pool}
			result.Seeds[i] = BracketSeed{Seed: i + 1, TeamID: rec.TeamID, TeamName: rec.TeamName, Pool: rec.Pool}
		}
		result.BracketSize = brackets.NextPowerOfTwo(len(entries))

		generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Tournament: tournament, Entries: entries})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientTeams, err)
		}

		result.Matches, err = s.createPlayoffMatches(ctx, exec, tournament, generated)
		return err
	})
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("generate bracket for tournament %d", tournamentID))
	}

	s.metrics.IncBracketsGenerated()
	s.logger.InfoContext(ctx, "playoff bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("seeds", len(result.Seeds)),
		slog.Int("matches", len(result.Matches)))

	result.SnapshotURL = s.uploadSnapshot(ctx, tournament, result)
	s.notifier.publish(ctx, realtime.TournamentRoom(tournamentID), realtime.EventBracketGenerated,
		BracketGeneratedEvent{TournamentID: tournamentID, MatchCount: len(result.Matches), SnapshotURL: result.SnapshotURL})
	return result, nil
}

// createPlayoffMatches persists the generated bracket. Matches of one round
// are spaced by MatchSlotInterval and each round starts PlayoffRoundGap after
// the last match of the previous one.
func (s *bracketService) createPlayoffMatches(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, generated []*brackets.BracketMatch) ([]*models.Match, error) {
	roundStart := s.now().UTC()
	if t.StartDate.After(roundStart) {
		roundStart = t.StartDate
	}

	created := make([]*models.Match, 0, len(generated))
	for i := 0; i < len(generated); {
		round := generated[i].Round
		slot := roundStart
		for ; i < len(generated) && generated[i].Round == round; i++ {
			bm := generated[i]
			r, pos, name := bm.Round, bm.OrderInRound, bm.RoundName
			match := &models.Match{
				HomeTeamID:      bm.HomeTeamID,
				AwayTeamID:      bm.AwayTeamID,
				Status:          models.MatchStatusScheduled,
				TournamentID:    &t.ID,
				SeasonID:        t.SeasonID,
				IsPlayoff:       true,
				Round:           &r,
				BracketPosition: &pos,
				RoundName:       &name,
				ScheduledAt:     slot,
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return nil, fmt.Errorf("create playoff match %s: %w", bm.UID, err)
			}
			created = append(created, match)
			slot = slot.Add(MatchSlotInterval)
		}
		roundStart = slot.Add(-MatchSlotInterval).Add(PlayoffRoundGap)
	}
	return created, nil
}

func (s *bracketService) uploadSnapshot(ctx context.Context, t *models.Tournament, bracket *GeneratedBracket) string {
	if s.uploader == nil || t == nil {
		return ""
	}
	data, err := json.Marshal(bracket)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode bracket snapshot", slog.Any("error", err))
		return ""
	}
	key := storage.BracketSnapshotKey(t.Name, t.ID)
	res, err := s.uploader.Upload(context.WithoutCancel(ctx), key, "application/json", bytes.NewReader(data))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to upload bracket snapshot", slog.String("key", key), slog.Any("error", err))
		return ""
	}
	return res.Location
}

func (s *bracketService) GetTournamentBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		tournament *models.Tournament
		teams      []*models.TournamentTeam
		matches    []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = s.tournamentRepo.GetByID(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.tournamentRepo.ListTeams(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, nil, tournamentID, repositories.MatchFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("load bracket of tournament %d", tournamentID))
	}

	poolMatches := make([]*models.Match, 0)
	playoffMatches := make([]*models.Match, 0)
	for _, m := range matches {
		switch {
		case m.IsPlayoff:
			playoffMatches = append(playoffMatches, m)
		case m.Status == models.MatchStatusCompleted:
			poolMatches = append(poolMatches, m)
		}
	}

	table, err := s.tabulatePools(ctx, nil, poolMatches, teams)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("tabulate pools of tournament %d", tournamentID))
	}

	view := &BracketView{
		Tournament: tournament,
		Pools:      make([]PoolStandings, 0, len(table.Labels)),
		Rounds:     groupRounds(playoffMatches),
	}
	for _, label := range table.Labels {
		view.Pools = append(view.Pools, PoolStandings{Pool: label, Teams: table.Pools[label]})
	}
	return view, nil
}

// tabulatePools builds pool tables from completed pool matches. Set points
// are summed per match; teams without a registration land in the default pool.
func (s *bracketService) tabulatePools(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match, teams []*models.TournamentTeam) (*standings.PoolTable, error) {
	pools := make(map[int]string, len(teams))
	names := make(map[int]string, len(teams))
	for _, tt := range teams {
		pools[tt.TeamID] = tt.Pool()
		names[tt.TeamID] = tt.TeamName
	}

	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	sets, err := s.setRepo.ListByMatches(ctx, exec, ids)
	if err != nil {
		return nil, err
	}
	type pointTotals struct{ home, away int }
	totals := make(map[int]pointTotals, len(matches))
	for _, st := range sets {
		t := totals[st.MatchID]
		t.home += st.HomePoints
		t.away += st.AwayPoints
		totals[st.MatchID] = t
	}

	results := make([]standings.CompletedMatch, 0, len(matches))
	for _, m := range matches {
		if !m.TeamsDetermined() || m.WinnerTeamID == nil {
			continue
		}
		results = append(results, standings.CompletedMatch{
			HomeTeamID:   *m.HomeTeamID,
			AwayTeamID:   *m.AwayTeamID,
			WinnerTeamID: *m.WinnerTeamID,
			HomeSetsWon:  m.HomeSetsWon,
			AwaySetsWon:  m.AwaySetsWon,
			HomePoints:   totals[m.ID].home,
			AwayPoints:   totals[m.ID].away,
		})
	}

	table := standings.TabulatePools(results, func(teamID int) string {
		if pool, ok := pools[teamID]; ok {
			return pool
		}
		return models.DefaultPool
	})
	for _, label := range table.Labels {
		for i := range table.Pools[label] {
			table.Pools[label][i].TeamName = names[table.Pools[label][i].TeamID]
		}
	}
	return table, nil
}

// groupRounds groups playoff matches by their stored round number. Brackets
// stored without round numbers are split by scheduling gaps instead.
func groupRounds(matches []*models.Match) []BracketRound {
	if len(matches) == 0 {
		return []BracketRound{}
	}

	for _, m := range matches {
		if m.Round == nil {
			return groupRoundsByTime(matches)
		}
	}

	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		byRound[*m.Round] = append(byRound[*m.Round], m)
	}
	numbers := make([]int, 0, len(byRound))
	for r := range byRound {
		numbers = append(numbers, r)
	}
	sort.Ints(numbers)
	total := numbers[len(numbers)-1]

	rounds := make([]BracketRound, 0, len(numbers))
	for _, r := range numbers {
		ms := byRound[r]
		sort.SliceStable(ms, func(i, j int) bool { return position(ms[i]) < position(ms[j]) })
		name := brackets.RoundName(r, total)
		if ms[0].RoundName != nil && *ms[0].RoundName != "" {
			name = *ms[0].RoundName
		}
		rounds = append(rounds, BracketRound{Round: r, Name: name, Matches: ms})
	}
	return rounds
}

func groupRoundsByTime(matches []*models.Match) []BracketRound {
	grouped := brackets.GroupByTimeGap(matches, brackets.RoundGapThreshold)
	rounds := make([]BracketRound, 0, len(grouped))
	for i, ms := range grouped {
		rounds = append(rounds, BracketRound{Round: i + 1, Name: brackets.RoundName(i+1, len(grouped)), Matches: ms})
	}
	return rounds
}

func position(m *models.Match) int {
	if m.BracketPosition == nil {
		return 0
	}
	return *m.BracketPosition
}
