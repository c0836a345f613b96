//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"

	"github.com/2beens/gymstreak/internal/attendance"
	"github.com/2beens/gymstreak/internal/streak"
	"github.com/2beens/gymstreak/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type markAttendanceResponse struct {
	Date     string        `json:"date"`
	Attended bool          `json:"attended"`
	Streak   *streak.State `json:"streak"`
}

func (s *IntegrationTestSuite) TestStreakFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.redisDataCleanup(ctx))

	creds := newTestCredentials()
	userID := doSignup(ctx, t, s.httpClient, creds)
	token := doLogin(ctx, t, s.httpClient, creds).Token

	mark := func(date string) markAttendanceResponse {
		t.Helper()
		resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/attendance/"+date, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var markResp markAttendanceResponse
		decodeBody(t, resp, &markResp)
		return markResp
	}
	getStreak := func() streak.State {
		t.Helper()
		resp := doRequest(ctx, t, s.httpClient, http.MethodGet, "/streak", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var state streak.State
		decodeBody(t, resp, &state)
		return state
	}

	state := getStreak()
	assert.Equal(t, userID, state.UserID)
	assert.Zero(t, state.CurrentStreak)
	assert.Nil(t, state.LastAttendanceDate)

	// monday, tuesday, wednesday
	for i, date := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		markResp := mark(date)
		assert.True(t, markResp.Attended)
		require.NotNil(t, markResp.Streak)
		assert.Equal(t, i+1, markResp.Streak.CurrentStreak)
	}

	// unmarking tuesday leaves the streak as it was until a recompute
	markResp := mark("2024-03-05")
	assert.False(t, markResp.Attended)
	assert.Equal(t, 3, markResp.Streak.CurrentStreak)

	resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/streak/recompute", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recomputed streak.State
	decodeBody(t, resp, &recomputed)
	assert.Equal(t, 1, recomputed.CurrentStreak)
	assert.Equal(t, 3, recomputed.MaxStreak)
	require.NotNil(t, recomputed.LastAttendanceDate)
	assert.Equal(t, "2024-03-06", recomputed.LastAttendanceDate.String())

	resp = doRequest(ctx, t, s.httpClient, http.MethodGet, "/attendance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []attendance.Record
	decodeBody(t, resp, &history)
	assert.Len(t, history, 2)

	resp = doRequest(ctx, t, s.httpClient, http.MethodGet, "/streak/share", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var share map[string]string
	decodeBody(t, resp, &share)
	assert.Equal(t, "Check out my 1 day gym streak! 💪", share["message"])

	// a new session loads the persisted state
	resp = doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	token = doLogin(ctx, t, s.httpClient, creds).Token

	state = getStreak()
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 3, state.MaxStreak)

	resp = doRequest(ctx, t, s.httpClient, http.MethodPost, "/attendance/2024-13-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func (s *IntegrationTestSuite) TestWorkouts() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.redisDataCleanup(ctx))

	creds := newTestCredentials()
	doSignup(ctx, t, s.httpClient, creds)
	token := doLogin(ctx, t, s.httpClient, creds).Token

	resp := doRequest(ctx, t, s.httpClient, http.MethodGet, "/workouts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []workouts.Workout
	decodeBody(t, resp, &list)
	require.Len(t, list, 6)
	assert.Equal(t, "Legs", list[0].BodyPart)

	resp = doRequest(ctx, t, s.httpClient, http.MethodPut, "/workouts/"+list[0].ID, token, map[string]string{"bodyPart": "Glutes"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated workouts.Workout
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Glutes", updated.BodyPart)
	assert.Equal(t, list[0].ID, updated.ID)

	resp = doRequest(ctx, t, s.httpClient, http.MethodPut, "/workouts/"+list[0].ID, token, map[string]string{"bodyPart": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// the catalog is public
	resp = doRequest(ctx, t, s.httpClient, http.MethodGet, "/exercises/Legs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exercises []workouts.Exercise
	decodeBody(t, resp, &exercises)
	assert.NotEmpty(t, exercises)
	for _, e := range exercises {
		assert.Equal(t, "Legs", e.BodyPart)
	}
}
