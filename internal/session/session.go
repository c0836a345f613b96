package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymstreak/internal/attendance"
	"github.com/2beens/gymstreak/internal/calendar"
	"github.com/2beens/gymstreak/internal/events"
	"github.com/2beens/gymstreak/internal/streak"
	"github.com/2beens/gymstreak/internal/telemetry/metrics"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/internal/workouts"

	"cloud.google.com/go/civil"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators shared by all sessions.
type Deps struct {
	AttendanceRepo attendance.Repository
	StreakRepo     streak.Repository
	WorkoutRepo    workouts.Repository
	Publisher      events.Publisher
	Metrics        *metrics.Manager
	Location       *time.Location
}

// Session is the state of one signed in user: attendance ledger, streak and
// weekly schedule. It lives from sign in to sign out.
type Session struct {
	userID    string
	loc       *time.Location
	ledger    *attendance.Ledger
	tracker   *streak.Tracker
	schedule  *workouts.Schedule
	publisher events.Publisher
	metrics   *metrics.Manager
	now       func() time.Time

	// serializes mutations
	mutex sync.Mutex
}

func New(userID string, deps Deps) *Session {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Session{
		userID:    userID,
		loc:       loc,
		ledger:    attendance.NewLedger(userID, deps.AttendanceRepo),
		tracker:   streak.NewTracker(userID, deps.StreakRepo),
		schedule:  workouts.NewSchedule(userID, deps.WorkoutRepo),
		publisher: publisher,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Location() *time.Location {
	return s.loc
}

// Load refreshes the ledger, the streak and the schedule from storage.
func (s *Session) Load(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", s.userID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.ledger.Load(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.tracker.Load(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.schedule.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load session of user [%s]: %w", s.userID, err)
	}
	return nil
}

// MarkAttendance toggles attendance for date, YYYY-MM-DD or an RFC 3339
// timestamp read in the session time zone.
func (s *Session) MarkAttendance(ctx context.Context, date string) error {
	d, err := calendar.Parse(date, s.loc)
	if err != nil {
		return err
	}
	_, err = s.Toggle(ctx, d)
	return err
}

// Toggle removes date when attended, adds it otherwise, and updates the
// streak accordingly. It reports whether date is attended afterwards.
// A failed streak update after a successful ledger change is returned as an
// error while the ledger keeps the change.
func (s *Session) Toggle(ctx context.Context, date civil.Date) (attended bool, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ctx, span := tracing.GlobalTracer.Start(ctx, "session.toggle_attendance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", s.userID),
		attribute.String("date", date.String()),
	)

	if record, ok := s.ledger.Find(date); ok {
		if err := s.ledger.Remove(ctx, record.ID); err != nil {
			return true, err
		}
		s.countAttendance("remove")

		state, err := s.tracker.OnAttendanceRemoved(ctx, date, s.ledger)
		if err != nil {
			s.countStreakError()
			return false, fmt.Errorf("attendance removed, streak stale: %w", err)
		}
		s.streakChanged(ctx, events.TypeAttendanceUnmarked, &date, state, "removal")
		return false, nil
	}

	if _, err := s.ledger.Add(ctx, date); err != nil {
		return false, err
	}
	s.countAttendance("add")

	state, err := s.tracker.OnAttendanceAdded(ctx, date, s.ledger)
	if err != nil {
		s.countStreakError()
		return true, fmt.Errorf("attendance added, streak stale: %w", err)
	}
	s.streakChanged(ctx, events.TypeAttendanceMarked, &date, state, "incremental")
	return true, nil
}

// Attended reports whether the cached ledger holds date.
func (s *Session) Attended(date civil.Date) bool {
	return s.ledger.Attended(date)
}

// Streak is the cached streak, nil until loaded.
func (s *Session) Streak() *streak.State {
	return s.tracker.State()
}

// AttendanceHistory is the cached ledger, newest first.
func (s *Session) AttendanceHistory() []attendance.Record {
	return s.ledger.History()
}

// RecomputeStreak rebuilds the streak from the whole attendance history.
func (s *Session) RecomputeStreak(ctx context.Context) (_ *streak.State, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ctx, span := tracing.GlobalTracer.Start(ctx, "session.recompute_streak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	state, err := s.tracker.RecomputeFull(ctx, s.ledger)
	if err != nil {
		s.countStreakError()
		return nil, err
	}
	s.streakChanged(ctx, events.TypeStreakRecomputed, nil, state, "full")
	return state, nil
}

// ShareMessage is the text offered when sharing the current streak.
func (s *Session) ShareMessage() string {
	current := 0
	if state := s.tracker.State(); state != nil {
		current = state.CurrentStreak
	}
	return fmt.Sprintf("Check out my %d day gym streak! 💪", current)
}

func (s *Session) Workouts() []workouts.Workout {
	return s.schedule.Workouts()
}

// TodayWorkout is nil on rest days.
func (s *Session) TodayWorkout() (time.Weekday, *workouts.Workout) {
	weekday := calendar.Weekday(calendar.Today(s.now(), s.loc))
	return weekday, s.schedule.ForDay(weekday)
}

func (s *Session) UpdateWorkout(ctx context.Context, workoutID, bodyPart string) (*workouts.Workout, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.schedule.Update(ctx, workoutID, bodyPart)
}

// Close drops all cached state.
func (s *Session) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ledger.Reset()
	s.tracker.Reset()
	s.schedule.Reset()
}

// streakChanged publishes the new state. A nil state means the tracker
// skipped the update.
func (s *Session) streakChanged(ctx context.Context, eventType events.Type, date *civil.Date, state *streak.State, path string) {
	if state == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.CounterStreakUpdates.WithLabelValues(path).Inc()
	}

	event := events.NewStreakEvent(eventType, date, *state, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Errorf("publish %s event for user [%s]: %s", eventType, s.userID, err)
		if s.metrics != nil {
			s.metrics.CounterEventsPublishErrors.Inc()
		}
	}
}

func (s *Session) countAttendance(action string) {
	if s.metrics != nil {
		s.metrics.CounterAttendance.WithLabelValues(action).Inc()
	}
}

func (s *Session) countStreakError() {
	if s.metrics != nil {
		s.metrics.CounterStreakUpdateErrors.Inc()
	}
}
