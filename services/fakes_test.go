package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/lock"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/standings"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/storage"
)

// memoryDB is an in-memory stand-in for PostgreSQL. WithinTx snapshots the
// whole state and restores it when the callback fails.
type memoryDB struct {
	mu          sync.Mutex
	nextID      int
	matches     map[int]*models.Match
	sets        map[int]*models.Set
	points      []*models.Point
	tournaments map[int]*models.Tournament
	teams       map[int]*models.Team
	entries     []*models.TournamentTeam
	standings   map[[2]int]*models.Standing

	failSetUpdate error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		matches:     make(map[int]*models.Match),
		sets:        make(map[int]*models.Set),
		tournaments: make(map[int]*models.Tournament),
		teams:       make(map[int]*models.Team),
		standings:   make(map[[2]int]*models.Standing),
	}
}

func (db *memoryDB) id() int {
	db.nextID++
	return db.nextID
}

func intPtr(v int) *int { return &v }

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	c.HomeTeamID = copyIntPtr(m.HomeTeamID)
	c.AwayTeamID = copyIntPtr(m.AwayTeamID)
	c.WinnerTeamID = copyIntPtr(m.WinnerTeamID)
	c.CurrentSetID = copyIntPtr(m.CurrentSetID)
	c.Round = copyIntPtr(m.Round)
	c.BracketPosition = copyIntPtr(m.BracketPosition)
	return &c
}

func copySet(s *models.Set) *models.Set {
	c := *s
	c.WinnerTeamID = copyIntPtr(s.WinnerTeamID)
	return &c
}

func copyStanding(s *models.Standing) *models.Standing {
	c := *s
	c.RankInAgeGroup = copyIntPtr(s.RankInAgeGroup)
	c.RankInDivision = copyIntPtr(s.RankInDivision)
	return &c
}

type memorySnapshot struct {
	nextID      int
	matches     map[int]*models.Match
	sets        map[int]*models.Set
	points      []*models.Point
	tournaments map[int]*models.Tournament
	standings   map[[2]int]*models.Standing
}

func (db *memoryDB) snapshot() memorySnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memorySnapshot{
		nextID:      db.nextID,
		matches:     make(map[int]*models.Match, len(db.matches)),
		sets:        make(map[int]*models.Set, len(db.sets)),
		points:      append([]*models.Point(nil), db.points...),
		tournaments: make(map[int]*models.Tournament, len(db.tournaments)),
		standings:   make(map[[2]int]*models.Standing, len(db.standings)),
	}
	for k, v := range db.matches {
		s.matches[k] = copyMatch(v)
	}
	for k, v := range db.sets {
		s.sets[k] = copySet(v)
	}
	for k, v := range db.tournaments {
		c := *v
		s.tournaments[k] = &c
	}
	for k, v := range db.standings {
		s.standings[k] = copyStanding(v)
	}
	return s
}

func (db *memoryDB) restore(s memorySnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.matches = s.matches
	db.sets = s.sets
	db.points = s.points
	db.tournaments = s.tournaments
	db.standings = s.standings
}

// WithinTx implements repositories.Transactor. Callers are serialized so a
// rollback never discards another caller's writes.
type memoryTx struct {
	db *memoryDB
	mu sync.Mutex
}

func (t *memoryTx) WithinTx(_ context.Context, _ *sql.TxOptions, fn func(exec repositories.SQLExecutor) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memoryMatchRepo struct{ db *memoryDB }

func (r *memoryMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.HomeTeamID != nil && m.AwayTeamID != nil && *m.HomeTeamID == *m.AwayTeamID {
		return repositories.ErrCheckViolation
	}
	m.ID = r.db.id()
	m.Version = 0
	m.CreatedAt = time.Now()
	r.db.matches[m.ID] = copyMatch(m)
	return nil
}

func (r *memoryMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (r *memoryMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memoryMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.matches[m.ID]
	if !ok || stored.Version != m.Version {
		return repositories.ErrVersionConflict
	}
	m.Version++
	r.db.matches[m.ID] = copyMatch(m)
	return nil
}

func (r *memoryMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, f repositories.MatchFilter) ([]*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.db.matches {
		if m.TournamentID == nil || *m.TournamentID != tournamentID {
			continue
		}
		if f.IsPlayoff != nil && m.IsPlayoff != *f.IsPlayoff {
			continue
		}
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryMatchRepo) GetPlayoffSlot(_ context.Context, _ repositories.SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.matches {
		if m.IsPlayoff && m.TournamentID != nil && *m.TournamentID == tournamentID &&
			m.Round != nil && *m.Round == round && m.BracketPosition != nil && *m.BracketPosition == position {
			return copyMatch(m), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

type memorySetRepo struct{ db *memoryDB }

func (r *memorySetRepo) Create(_ context.Context, _ repositories.SQLExecutor, s *models.Set) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.sets {
		if existing.MatchID == s.MatchID && (existing.SetNumber == s.SetNumber ||
			(existing.Status == models.SetStatusInProgress && s.Status == models.SetStatusInProgress)) {
			return repositories.ErrDuplicateRecord
		}
	}
	s.ID = r.db.id()
	r.db.sets[s.ID] = copySet(s)
	return nil
}

func (r *memorySetRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Set, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sets[id]
	if !ok {
		return nil, repositories.ErrSetNotFound
	}
	return copySet(s), nil
}

func (r *memorySetRepo) Update(_ context.Context, _ repositories.SQLExecutor, s *models.Set) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failSetUpdate != nil {
		return r.db.failSetUpdate
	}
	if _, ok := r.db.sets[s.ID]; !ok {
		return repositories.ErrSetNotFound
	}
	r.db.sets[s.ID] = copySet(s)
	return nil
}

func (r *memorySetRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Set, error) {
	return r.ListByMatches(ctx, exec, []int{matchID})
}

func (r *memorySetRepo) ListByMatches(_ context.Context, _ repositories.SQLExecutor, matchIDs []int) ([]*models.Set, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	wanted := make(map[int]bool, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = true
	}
	out := make([]*models.Set, 0)
	for _, s := range r.db.sets {
		if wanted[s.MatchID] {
			out = append(out, copySet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].SetNumber < out[j].SetNumber
	})
	return out, nil
}

type memoryPointRepo struct{ db *memoryDB }

func (r *memoryPointRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Point) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.id()
	c := *p
	r.db.points = append(r.db.points, &c)
	return nil
}

func (r *memoryPointRepo) ListBySet(_ context.Context, _ repositories.SQLExecutor, setID int) ([]*models.Point, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Point, 0)
	for _, p := range r.db.points {
		if p.SetID == setID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

type memoryTournamentRepo struct{ db *memoryDB }

func (r *memoryTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *memoryTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memoryTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok || t.Status != from {
		return repositories.ErrStatusConflict
	}
	t.Status = to
	return nil
}

func (r *memoryTournamentRepo) ListTeams(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.TournamentTeam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.TournamentTeam, 0)
	for _, e := range r.db.entries {
		if e.TournamentID != tournamentID {
			continue
		}
		c := *e
		if team, ok := r.db.teams[e.TeamID]; ok {
			c.TeamName = team.Name
		}
		out = append(out, &c)
	}
	return out, nil
}

type memoryStandingRepo struct{ db *memoryDB }

func (r *memoryStandingRepo) ApplyResult(_ context.Context, _ repositories.SQLExecutor, d models.StandingDelta) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int{d.TeamID, d.SeasonID}
	row, ok := r.db.standings[key]
	if !ok {
		row = &models.Standing{ID: r.db.id(), TeamID: d.TeamID, SeasonID: d.SeasonID}
		r.db.standings[key] = row
	}
	standings.Apply(row, d)
	return nil
}

func (r *memoryStandingRepo) ListBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int, ageGroup *string) ([]*models.Standing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Standing, 0)
	for _, s := range r.db.standings {
		if s.SeasonID != seasonID {
			continue
		}
		c := copyStanding(s)
		if team, ok := r.db.teams[s.TeamID]; ok {
			c.TeamName, c.AgeGroup = team.Name, team.AgeGroup
		}
		if ageGroup != nil && c.AgeGroup != *ageGroup {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinPercentage != out[j].WinPercentage {
			return out[i].WinPercentage > out[j].WinPercentage
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (r *memoryStandingRepo) UpdateRanks(_ context.Context, _ repositories.SQLExecutor, rows []*models.Standing) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range rows {
		stored, ok := r.db.standings[[2]int{s.TeamID, s.SeasonID}]
		if !ok {
			return repositories.ErrStandingNotFound
		}
		stored.RankInAgeGroup = copyIntPtr(s.RankInAgeGroup)
		stored.RankInDivision = copyIntPtr(s.RankInDivision)
	}
	return nil
}

type publishedEvent struct {
	Room    string
	Type    realtime.EventType
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, room string, eventType realtime.EventType, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Room: room, Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) types(room string) []realtime.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.EventType, 0)
	for _, e := range p.events {
		if e.Room == room {
			out = append(out, e.Type)
		}
	}
	return out
}

var errBoom = errors.New("boom")

var testNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	db        *memoryDB
	publisher *recordingPublisher
	metrics   *metrics.Mock
	uploader  *storage.MemoryUploader

	standings StandingsService
	scoring   *scoringService
	schedule  ScheduleService
	brackets  *bracketService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := newMemoryDB()
	tx := &memoryTx{db: db}
	matchRepo := &memoryMatchRepo{db: db}
	setRepo := &memorySetRepo{db: db}
	tournamentRepo := &memoryTournamentRepo{db: db}
	pub := &recordingPublisher{}
	m := metrics.NewMock()
	uploader := storage.NewMemoryUploader("https://cdn.example.com")

	standingsSvc := NewStandingsService(tx, &memoryStandingRepo{db: db}, logger)
	scoring := NewScoringService(tx, matchRepo, setRepo, &memoryPointRepo{db: db}, tournamentRepo,
		standingsSvc, lock.NewLocalLocker(), pub, m, logger).(*scoringService)
	scoring.now = func() time.Time { return testNow }
	bracketSvc := NewBracketService(tx, tournamentRepo, matchRepo, setRepo, uploader, pub, m, logger).(*bracketService)
	bracketSvc.now = func() time.Time { return testNow }

	return &harness{
		db:        db,
		publisher: pub,
		metrics:   m,
		uploader:  uploader,
		standings: standingsSvc,
		scoring:   scoring,
		schedule:  NewScheduleService(tx, tournamentRepo, matchRepo, pub, m, logger),
		brackets:  bracketSvc,
	}
}

func (h *harness) addTeam(id int, name, ageGroup string) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	h.db.teams[id] = &models.Team{ID: id, Name: name, AgeGroup: ageGroup}
}

func (h *harness) addTournament(status models.TournamentStatus, seasonID *int) *models.Tournament {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	t := &models.Tournament{
		ID:        h.db.id(),
		Name:      "Spring Invitational",
		Format:    models.FormatPoolPlay,
		Status:    status,
		SeasonID:  seasonID,
		StartDate: testNow.Add(48 * time.Hour),
		EndDate:   testNow.Add(72 * time.Hour),
	}
	h.db.tournaments[t.ID] = t
	c := *t
	return &c
}

func (h *harness) register(tournamentID, teamID int, pool string) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	tt := &models.TournamentTeam{ID: h.db.id(), TournamentID: tournamentID, TeamID: teamID}
	if pool != "" {
		tt.PoolLabel = &pool
	}
	h.db.entries = append(h.db.entries, tt)
}

func (h *harness) addMatch(m *models.Match) *models.Match {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	m.ID = h.db.id()
	if m.Status == "" {
		m.Status = models.MatchStatusScheduled
	}
	h.db.matches[m.ID] = copyMatch(m)
	return copyMatch(m)
}

func (h *harness) match(id int) *models.Match {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return copyMatch(h.db.matches[id])
}

func (h *harness) tournamentStatus(id int) models.TournamentStatus {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return h.db.tournaments[id].Status
}

func (h *harness) pointCount() int {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return len(h.db.points)
}
