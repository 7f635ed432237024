package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
)

func TestGeneratePoolPlaySchedule_SinglePool(t *testing.T) {
	h := newHarness(t)
	tour := h.addTournament(models.TournamentStatusRegistration, intPtr(seasonID))
	for id := 1; id <= 4; id++ {
		h.register(tour.ID, id, "A")
	}

	res, err := h.schedule.GeneratePoolPlaySchedule(context.Background(), tour.ID)
	require.NoError(t, err)
	require.Len(t, res.Matches, 6)

	pairs := make(map[[2]int]bool)
	for i, m := range res.Matches {
		require.True(t, m.TeamsDetermined())
		assert.False(t, m.IsPlayoff)
		assert.Equal(t, models.MatchStatusScheduled, m.Status)
		assert.Equal(t, tour.ID, *m.TournamentID)
		assert.Equal(t, seasonID, *m.SeasonID)
		assert.Equal(t, tour.StartDate.Add(time.Duration(i)*MatchSlotInterval), m.ScheduledAt)

		a, b := min(*m.HomeTeamID, *m.AwayTeamID), max(*m.HomeTeamID, *m.AwayTeamID)
		assert.False(t, pairs[[2]int{a, b}], "pair %d-%d scheduled twice", a, b)
		pairs[[2]int{a, b}] = true
	}

	assert.Equal(t, models.TournamentStatusInProgress, h.tournamentStatus(tour.ID))
	assert.Equal(t, 1, h.metrics.SchedulesGenerated())
	assert.Equal(t, []realtime.EventType{realtime.EventScheduleGenerated}, h.publisher.types(realtime.TournamentRoom(tour.ID)))

	_, err = h.schedule.GeneratePoolPlaySchedule(context.Background(), tour.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGeneratePoolPlaySchedule_PoolsStaySeparate(t *testing.T) {
	h := newHarness(t)
	tour := h.addTournament(models.TournamentStatusRegistration, nil)
	h.register(tour.ID, 1, "")
	h.register(tour.ID, 2, "A")
	h.register(tour.ID, 3, "B")
	h.register(tour.ID, 4, "B")
	h.register(tour.ID, 5, "B")

	res, err := h.schedule.GeneratePoolPlaySchedule(context.Background(), tour.ID)
	require.NoError(t, err)
	require.Len(t, res.Matches, 4, "one match in pool A, three in pool B")

	poolA := map[int]bool{1: true, 2: true}
	for _, m := range res.Matches {
		assert.Equal(t, poolA[*m.HomeTeamID], poolA[*m.AwayTeamID], "teams %d and %d come from different pools", *m.HomeTeamID, *m.AwayTeamID)
		assert.Nil(t, m.SeasonID)
	}
}

func TestGeneratePoolPlaySchedule_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.schedule.GeneratePoolPlaySchedule(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	lonely := h.addTournament(models.TournamentStatusRegistration, nil)
	h.register(lonely.ID, 1, "A")
	_, err = h.schedule.GeneratePoolPlaySchedule(context.Background(), lonely.ID)
	assert.ErrorIs(t, err, ErrInsufficientTeams)
	assert.Equal(t, models.TournamentStatusRegistration, h.tournamentStatus(lonely.ID), "status change is rolled back")

	done := h.addTournament(models.TournamentStatusCompleted, nil)
	h.register(done.ID, 1, "A")
	h.register(done.ID, 2, "A")
	_, err = h.schedule.GeneratePoolPlaySchedule(context.Background(), done.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, 0, h.metrics.SchedulesGenerated())
}
