package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/2beens/gymstreak/internal/streak"
	"github.com/2beens/gymstreak/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStreakRepo struct {
	*streak.MemoryRepo
}

func (r *brokenStreakRepo) Upsert(context.Context, string, streak.State) (*streak.State, error) {
	return nil, errors.New("db down")
}

func TestManager_SignInSignOut(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, "tkn-1", "user-1"))
	require.NoError(t, manager.SignIn(ctx, "tkn-2", "user-2"))
	assert.Equal(t, 2, manager.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))

	s, ok := manager.Get("tkn-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", s.UserID())
	assert.NotNil(t, s.Streak())

	manager.SignOut("tkn-1")
	_, ok = manager.Get("tkn-1")
	assert.False(t, ok)
	assert.Nil(t, s.Streak())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))

	// unknown token
	manager.SignOut("tkn-1")
	assert.Equal(t, 1, manager.Len())

	manager.Close()
	assert.Equal(t, 0, manager.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))
}

func TestManager_SignIn_LoadFailure(t *testing.T) {
	env := newTestEnv()
	env.deps.StreakRepo = &brokenStreakRepo{MemoryRepo: streak.NewMemoryRepo()}
	manager := NewManager(env.deps)

	err := manager.SignIn(context.Background(), "tkn-1", "user-1")
	require.Error(t, err)
	assert.Equal(t, 0, manager.Len())
}

func TestManager_Session_LoadsLazily(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	s, err := manager.Session(ctx, "tkn-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, s.Streak())

	again, err := manager.Session(ctx, "tkn-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, s, again)

	// a token reused by another user never sees the first user's session
	other, err := manager.Session(ctx, "tkn-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, "user-2", other.UserID())
	assert.Equal(t, 1, manager.Len())
}

func TestManager_Session_Concurrent(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := manager.Session(context.Background(), "tkn-1", "user-1")
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, 1, manager.Len())
}

func TestManager_TokensOfOneUserShareSession(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, "phone", "user-1"))
	require.NoError(t, manager.SignIn(ctx, "laptop", "user-1"))
	assert.Equal(t, 1, manager.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))

	phone, ok := manager.Get("phone")
	require.True(t, ok)
	laptop, ok := manager.Get("laptop")
	require.True(t, ok)
	require.Same(t, phone, laptop)

	require.NoError(t, phone.MarkAttendance(ctx, "2024-03-04"))
	assert.True(t, laptop.Attended(day("2024-03-04")))

	// the session lives as long as one of its tokens does
	manager.SignOut("phone")
	assert.Equal(t, 1, manager.Len())
	require.NotNil(t, laptop.Streak())
	assert.Equal(t, 1, laptop.Streak().CurrentStreak)

	manager.SignOut("laptop")
	assert.Equal(t, 0, manager.Len())
	assert.Nil(t, laptop.Streak())
	assert.Equal(t, float64(0), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))

	// signing in again loads the persisted state
	require.NoError(t, manager.SignIn(ctx, "phone", "user-1"))
	again, ok := manager.Get("phone")
	require.True(t, ok)
	assert.NotSame(t, phone, again)
	assert.Equal(t, 1, again.Streak().CurrentStreak)
}

func TestManager_SignOutOfExpiredTokensReleasesSessions(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	for _, token := range []string{"tkn-1", "tkn-2", "tkn-3"} {
		_, err := manager.Session(ctx, token, "user-"+token)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, manager.Len())

	for _, expired := range []string{"tkn-1", "tkn-3", "never-seen"} {
		manager.SignOut(expired)
	}
	assert.Equal(t, 1, manager.Len())
	_, ok := manager.Get("tkn-2")
	assert.True(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.deps.Metrics.GaugeActiveSessions))
}

func TestManager_RepairLive(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	repaired, err := manager.RepairLive(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, repaired)

	require.NoError(t, manager.SignIn(ctx, "tkn-1", "user-1"))
	s, _ := manager.Get("tkn-1")
	for _, date := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		require.NoError(t, s.MarkAttendance(ctx, date))
	}
	require.NoError(t, s.MarkAttendance(ctx, "2024-03-05"))
	assert.Equal(t, 3, s.Streak().CurrentStreak)

	repaired, err = manager.RepairLive(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, repaired)
	assert.Equal(t, 1, s.Streak().CurrentStreak)
}

func TestRepairJob_KeepsLiveSessionsInSync(t *testing.T) {
	env := newTestEnv()
	manager := NewManager(env.deps)
	ctx := context.Background()

	require.NoError(t, manager.SignIn(ctx, "tkn-1", "user-1"))
	s, _ := manager.Get("tkn-1")
	for _, date := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		require.NoError(t, s.MarkAttendance(ctx, date))
	}
	// unmarking an older day leaves the streak at 3 until repaired
	require.NoError(t, s.MarkAttendance(ctx, "2024-03-05"))
	require.Equal(t, 3, s.Streak().CurrentStreak)

	job := streak.NewRepairJob("@daily", env.deps.StreakRepo, env.deps.AttendanceRepo, metrics.NewTestManager()).
		WithLiveSessions(manager)
	repairedUsers, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repairedUsers)

	state := s.Streak()
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, "2024-03-06", state.StartDate.String())

	// the next mark builds on the repaired streak, in cache and in storage
	require.NoError(t, s.MarkAttendance(ctx, "2024-03-07"))
	assert.Equal(t, 2, s.Streak().CurrentStreak)

	stored, err := env.deps.StreakRepo.Fetch(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentStreak)
	assert.Equal(t, 3, stored.MaxStreak)
	assert.Equal(t, "2024-03-06", stored.StartDate.String())
	assert.Equal(t, "2024-03-07", stored.LastAttendanceDate.String())
}
