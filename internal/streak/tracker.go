package streak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"

	"cloud.google.com/go/civil"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=streak_test

// Repository is the slice of the data access layer the tracker needs.
type Repository interface {
	Fetch(ctx context.Context, userID string) (*State, error)
	// Upsert creates the row for userID from initial unless one exists, and
	// returns the stored row either way.
	Upsert(ctx context.Context, userID string, initial State) (*State, error)
	Update(ctx context.Context, state State) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// History is the view of the attendance ledger the tracker reads.
type History interface {
	Attended(date civil.Date) bool
	Dates() []civil.Date
}

// Tracker owns the cached streak of one signed in user and keeps it in step
// with attendance changes. Callers serialize mutations.
type Tracker struct {
	userID string
	repo   Repository
	now    func() time.Time

	mutex sync.RWMutex
	state *State
}

func NewTracker(userID string, repo Repository) *Tracker {
	return &Tracker{
		userID: userID,
		repo:   repo,
		now:    time.Now,
	}
}

// Load fetches the stored streak and caches it. A user without a streak row
// gets a zeroed one.
func (t *Tracker) Load(ctx context.Context) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "streak.tracker.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", t.userID))

	state, err := t.repo.Fetch(ctx, t.userID)
	if apperror.IsNotFound(err) {
		log.Debugf("no streak for user [%s], creating one", t.userID)
		state, err = t.repo.Upsert(ctx, t.userID, State{
			UserID:    t.userID,
			UpdatedAt: t.now().UTC(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}

	t.set(*state)
	return t.State(), nil
}

// State returns a copy of the cached streak, nil until loaded.
func (t *Tracker) State() *State {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if t.state == nil {
		return nil
	}
	s := t.state.Clone()
	return &s
}

// Reset drops the cached streak, on sign out.
func (t *Tracker) Reset() {
	t.mutex.Lock()
	t.state = nil
	t.mutex.Unlock()
}

// OnAttendanceAdded extends or resets the streak for a newly attended date.
// history must already contain date.
func (t *Tracker) OnAttendanceAdded(ctx context.Context, date civil.Date, history History) (*State, error) {
	current := t.State()
	if current == nil {
		logNoState(t.userID, "attendance added")
		return nil, nil
	}

	next := Extend(*current, date, history.Attended)
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}
	return t.State(), nil
}

// OnAttendanceRemoved recomputes the streak when the removed date was the
// last attended one. Removing an older date keeps the streak as it is, use
// RecomputeFull to repair it. history must no longer contain date.
func (t *Tracker) OnAttendanceRemoved(ctx context.Context, date civil.Date, history History) (*State, error) {
	current := t.State()
	if current == nil {
		logNoState(t.userID, "attendance removed")
		return nil, nil
	}
	if current.LastAttendanceDate == nil || *current.LastAttendanceDate != date {
		log.Debugf("removed %s is not the last attendance of user [%s], streak kept", date, t.userID)
		return current, nil
	}

	next := current.Clone()
	next.CurrentStreak, next.StartDate, next.LastAttendanceDate = Recompute(history.Dates())
	// never lowered, but an out of order history can leave it behind
	next.MaxStreak = max(next.MaxStreak, next.CurrentStreak)
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}
	return t.State(), nil
}

// RecomputeFull rebuilds the streak from the whole history. The max streak
// may grow to the longest run found but is never lowered.
func (t *Tracker) RecomputeFull(ctx context.Context, history History) (*State, error) {
	current := t.State()
	if current == nil {
		logNoState(t.userID, "full recompute")
		return nil, nil
	}

	dates := history.Dates()
	next := current.Clone()
	next.CurrentStreak, next.StartDate, next.LastAttendanceDate = Recompute(dates)
	next.MaxStreak = max(next.MaxStreak, next.CurrentStreak, LongestRun(dates))
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}
	return t.State(), nil
}

// persist stores next and only then replaces the cache, so a failed write
// leaves the previous state in place.
func (t *Tracker) persist(ctx context.Context, next State) error {
	next.UpdatedAt = t.now().UTC()
	if err := next.Check(); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvariant, err)
	}
	if err := t.repo.Update(ctx, next); err != nil {
		return fmt.Errorf("persist streak: %w", err)
	}
	t.set(next)
	return nil
}

func (t *Tracker) set(s State) {
	c := s.Clone()
	t.mutex.Lock()
	t.state = &c
	t.mutex.Unlock()
}

func logNoState(userID, op string) {
	log.Warnf("streak of user [%s] not loaded, ignoring %s", userID, op)
}
