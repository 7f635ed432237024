package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/services"
)

type stubScoring struct {
	lastInput  services.ScorePointInput
	lastStatus models.MatchStatus
	err        error
}

func (s *stubScoring) StartMatch(_ context.Context, matchID int) (*services.MatchState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.MatchState{
		Match: &models.Match{ID: matchID, Status: models.MatchStatusLive},
		Sets:  []*models.Set{{ID: 1, MatchID: matchID, SetNumber: 1, Status: models.SetStatusInProgress}},
	}, nil
}

func (s *stubScoring) ScorePoint(_ context.Context, input services.ScorePointInput) (*services.ScorePointResult, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &services.ScorePointResult{MatchID: input.MatchID, SetNumber: 1, HomePoints: 1}, nil
}

func (s *stubScoring) UpdateMatchStatus(_ context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	s.lastStatus = status
	if s.err != nil {
		return nil, s.err
	}
	return &models.Match{ID: matchID, Status: status}, nil
}

func (s *stubScoring) GetMatchState(_ context.Context, matchID int) (*services.MatchState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.MatchState{Match: &models.Match{ID: matchID}, Sets: []*models.Set{}}, nil
}

type stubStandings struct {
	ageGroup *string
	err      error
}

func (s *stubStandings) RecordMatchResult(context.Context, repositories.SQLExecutor, models.StandingDelta) error {
	return nil
}

func (s *stubStandings) RecalculateRanks(_ context.Context, seasonID int) ([]*models.Standing, error) {
	return []*models.Standing{{TeamID: 1, SeasonID: seasonID}}, s.err
}

func (s *stubStandings) GetStandings(_ context.Context, seasonID int, ageGroup *string) ([]*models.Standing, error) {
	s.ageGroup = ageGroup
	return []*models.Standing{{TeamID: 1, SeasonID: seasonID}}, s.err
}

type stubTournaments struct {
	err error
}

func (s *stubTournaments) GeneratePoolPlaySchedule(_ context.Context, tournamentID int) (*services.ScheduleResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.ScheduleResult{TournamentID: tournamentID, Matches: []*models.Match{}}, nil
}

func (s *stubTournaments) GenerateBracketFromPools(_ context.Context, tournamentID int) (*services.GeneratedBracket, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.GeneratedBracket{TournamentID: tournamentID, BracketSize: 4}, nil
}

func (s *stubTournaments) GetTournamentBracket(_ context.Context, tournamentID int) (*services.BracketView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.BracketView{Tournament: &models.Tournament{ID: tournamentID}}, nil
}

func newTestRouter(scoring *stubScoring, standings *stubStandings, tournaments *stubTournaments) http.Handler {
	mh := NewMatchHandler(scoring)
	sh := NewStandingsHandler(standings)
	th := NewTournamentHandler(tournaments, tournaments)

	r := chi.NewRouter()
	r.Get("/matches/{matchID}", mh.GetMatch)
	r.Post("/matches/{matchID}/start", mh.StartMatch)
	r.Post("/matches/{matchID}/points", mh.ScorePoint)
	r.Patch("/matches/{matchID}/status", mh.UpdateMatchStatus)
	r.Get("/seasons/{seasonID}/standings", sh.GetStandings)
	r.Post("/seasons/{seasonID}/standings/recalculate", sh.RecalculateRanks)
	r.Post("/tournaments/{tournamentID}/schedule", th.GenerateSchedule)
	r.Post("/tournaments/{tournamentID}/bracket", th.GenerateBracket)
	r.Get("/tournaments/{tournamentID}/bracket", th.GetBracket)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScorePointHandler(t *testing.T) {
	scoring := &stubScoring{}
	h := newTestRouter(scoring, &stubStandings{}, &stubTournaments{})

	rec := do(h, http.MethodPost, "/matches/3/points", `{"team_id": 11, "point_type": "ace", "player_id": 7}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, scoring.lastInput.MatchID)
	assert.Equal(t, 11, scoring.lastInput.TeamID)
	assert.Equal(t, models.PointTypeAce, scoring.lastInput.PointType)
	require.NotNil(t, scoring.lastInput.PlayerID)
	assert.Equal(t, 7, *scoring.lastInput.PlayerID)

	var body struct {
		Result services.ScorePointResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Result.MatchID)
	assert.Equal(t, 1, body.Result.HomePoints)
}

func TestScorePointHandler_BadRequests(t *testing.T) {
	h := newTestRouter(&stubScoring{}, &stubStandings{}, &stubTournaments{})

	tests := []struct {
		name, path, body string
	}{
		{"non numeric id", "/matches/abc/points", `{"team_id": 1}`},
		{"negative id", "/matches/-1/points", `{"team_id": 1}`},
		{"empty body", "/matches/1/points", ""},
		{"unknown field", "/matches/1/points", `{"team_id": 1, "score": 5}`},
		{"missing team", "/matches/1/points", `{"point_type": "ace"}`},
		{"two values", "/matches/1/points", `{"team_id": 1}{"team_id": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrInvalidState, http.StatusConflict},
		{services.ErrSetLimitExceeded, http.StatusConflict},
		{services.ErrConcurrentUpdate, http.StatusConflict},
		{services.ErrInvalidTeam, http.StatusUnprocessableEntity},
		{services.ErrInsufficientTeams, http.StatusUnprocessableEntity},
		{services.ErrNoCompletedGames, http.StatusUnprocessableEntity},
		{services.ErrValidationFailed, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("score point in match 1: %w", tt.err)
			h := newTestRouter(&stubScoring{err: wrapped}, &stubStandings{}, &stubTournaments{})
			rec := do(h, http.MethodPost, "/matches/1/points", `{"team_id": 1}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := newTestRouter(&stubScoring{err: errors.New("pq: password authentication failed")}, &stubStandings{}, &stubTournaments{})
	rec := do(h, http.MethodGet, "/matches/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestMatchLifecycleHandlers(t *testing.T) {
	scoring := &stubScoring{}
	h := newTestRouter(scoring, &stubStandings{}, &stubTournaments{})

	rec := do(h, http.MethodPost, "/matches/5/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "live"`)

	rec = do(h, http.MethodPatch, "/matches/5/status", `{"status": "postponed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MatchStatusPostponed, scoring.lastStatus)

	rec = do(h, http.MethodPatch, "/matches/5/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/matches/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStandingsHandlers(t *testing.T) {
	standings := &stubStandings{}
	h := newTestRouter(&stubScoring{}, standings, &stubTournaments{})

	rec := do(h, http.MethodGet, "/seasons/2/standings?age_group=U16", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, standings.ageGroup)
	assert.Equal(t, "U16", *standings.ageGroup)

	rec = do(h, http.MethodGet, "/seasons/2/standings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, standings.ageGroup)

	rec = do(h, http.MethodPost, "/seasons/2/standings/recalculate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"standings"`)
}

func TestTournamentHandlers(t *testing.T) {
	h := newTestRouter(&stubScoring{}, &stubStandings{}, &stubTournaments{})

	rec := do(h, http.MethodPost, "/tournaments/9/schedule", "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(h, http.MethodPost, "/tournaments/9/bracket", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bracket_size": 4`)

	rec = do(h, http.MethodGet, "/tournaments/9/bracket", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestRouter(&stubScoring{}, &stubStandings{}, &stubTournaments{err: services.ErrNoCompletedGames})
	rec = do(failing, http.MethodPost, "/tournaments/9/bracket", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(stubPinger{}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("down")}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
