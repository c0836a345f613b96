package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/gymstreak/internal/attendance"
	"github.com/2beens/gymstreak/internal/telemetry/metrics"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const repairRunTimeout = 10 * time.Minute

// LiveSessions rebuilds streaks that are cached by signed in sessions, so a
// repair is not overwritten by the next update of a stale cache.
type LiveSessions interface {
	// RepairLive reports false when userID has no live session.
	RepairLive(ctx context.Context, userID string) (bool, error)
}

// RepairJob periodically rebuilds every user's streak from their full
// attendance history, fixing the staleness left by removing older dates.
type RepairJob struct {
	schedule       string
	streakRepo     Repository
	attendanceRepo attendance.Repository
	metrics        *metrics.Manager
	live           LiveSessions
	cron           *cron.Cron
}

func NewRepairJob(
	schedule string,
	streakRepo Repository,
	attendanceRepo attendance.Repository,
	metricsManager *metrics.Manager,
) *RepairJob {
	return &RepairJob{
		schedule:       schedule,
		streakRepo:     streakRepo,
		attendanceRepo: attendanceRepo,
		metrics:        metricsManager,
		cron:           cron.New(),
	}
}

// WithLiveSessions routes users with a live session through it instead of
// the repos.
func (j *RepairJob) WithLiveSessions(live LiveSessions) *RepairJob {
	j.live = live
	return j
}

func (j *RepairJob) Start() error {
	log.Printf("starting streak repair job with schedule: %s", j.schedule)

	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("add streak repair cron job: %w", err)
	}
	j.cron.Start()

	return nil
}

// Stop waits for a running repair to finish.
func (j *RepairJob) Stop() {
	<-j.cron.Stop().Done()
	log.Println("streak repair job stopped")
}

func (j *RepairJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), repairRunTimeout)
	defer cancel()

	repaired, err := j.RunOnce(ctx)
	if err != nil {
		log.Errorf("streak repair: %d users repaired, errors: %s", repaired, err)
		return
	}
	log.Printf("streak repair done, %d users repaired", repaired)
}

// RunOnce repairs every user with a streak row. A failing user does not stop
// the others; all failures are returned combined.
func (j *RepairJob) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		j.metrics.HistStreakRepairDuration.Observe(time.Since(start).Seconds())
	}()

	userIDs, err := j.streakRepo.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var (
		repaired int
		errs     error
	)
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return repaired, multierr.Append(errs, ctx.Err())
		}
		if err := j.repairUser(ctx, userID); err != nil {
			j.metrics.CounterStreakUpdateErrors.Inc()
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		repaired++
	}

	return repaired, errs
}

func (j *RepairJob) repairUser(ctx context.Context, userID string) error {
	if j.live != nil {
		repaired, err := j.live.RepairLive(ctx, userID)
		if err != nil {
			return fmt.Errorf("repair live session: %w", err)
		}
		if repaired {
			j.metrics.CounterStreakUpdates.WithLabelValues("repair").Inc()
			return nil
		}
	}

	tracker := NewTracker(userID, j.streakRepo)
	before, err := tracker.Load(ctx)
	if err != nil {
		return err
	}

	ledger := attendance.NewLedger(userID, j.attendanceRepo)
	if _, err := ledger.Load(ctx); err != nil {
		return err
	}

	after, err := tracker.RecomputeFull(ctx, ledger)
	if err != nil {
		return err
	}
	j.metrics.CounterStreakUpdates.WithLabelValues("repair").Inc()

	if before.CurrentStreak != after.CurrentStreak || before.MaxStreak != after.MaxStreak {
		log.Debugf("streak repaired: %s -> %s", before, after)
	}

	// a session opened meanwhile may hold the state from before the repair
	if j.live != nil {
		if _, err := j.live.RepairLive(ctx, userID); err != nil {
			return fmt.Errorf("repair live session: %w", err)
		}
	}
	return nil
}
