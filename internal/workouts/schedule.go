package workouts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=schedule_mocks_test.go -package=workouts_test

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Workout, error)
	Create(ctx context.Context, workout Workout) (*Workout, error)
	UpdateBodyPart(ctx context.Context, userID, workoutID, bodyPart string) (*Workout, error)
}

// Schedule is one user's weekly plan, one workout per training day.
type Schedule struct {
	userID string
	repo   Repository

	mutex    sync.RWMutex
	workouts []Workout
}

func NewSchedule(userID string, repo Repository) *Schedule {
	return &Schedule{
		userID: userID,
		repo:   repo,
	}
}

// Load caches the user's workouts, creating the default week first if the
// user has none yet.
func (s *Schedule) Load(ctx context.Context) ([]Workout, error) {
	workouts, err := s.repo.ListByUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	if len(workouts) == 0 {
		log.Debugf("creating default workouts for user [%s]", s.userID)
		for day := time.Monday; day <= time.Saturday; day++ {
			_, err := s.repo.Create(ctx, Workout{
				UserID:    s.userID,
				DayOfWeek: day,
				BodyPart:  DefaultBodyParts[day],
			})
			if err != nil && !apperror.IsConflict(err) {
				return nil, fmt.Errorf("create default workout for %s: %w", day, err)
			}
		}
		if workouts, err = s.repo.ListByUser(ctx, s.userID); err != nil {
			return nil, fmt.Errorf("reload workouts: %w", err)
		}
	}

	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].DayOfWeek < workouts[j].DayOfWeek
	})

	s.mutex.Lock()
	s.workouts = workouts
	s.mutex.Unlock()

	return s.Workouts(), nil
}

func (s *Schedule) Workouts() []Workout {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	workouts := make([]Workout, len(s.workouts))
	copy(workouts, s.workouts)
	return workouts
}

// ForDay returns the user's workout for weekday, nil on the rest day or when
// none is scheduled.
func (s *Schedule) ForDay(weekday time.Weekday) *Workout {
	if weekday == time.Sunday {
		return nil
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, w := range s.workouts {
		if w.DayOfWeek == weekday {
			workout := w
			return &workout
		}
	}
	return nil
}

// BodyPartForDay falls back to the default plan when the user has no
// workout for weekday.
func (s *Schedule) BodyPartForDay(weekday time.Weekday) string {
	if w := s.ForDay(weekday); w != nil {
		return w.BodyPart
	}
	if weekday < time.Sunday || weekday > time.Saturday {
		return ""
	}
	return DefaultBodyParts[weekday]
}

// Update changes the body part of one of the user's workouts.
func (s *Schedule) Update(ctx context.Context, workoutID, bodyPart string) (*Workout, error) {
	bodyPart = strings.TrimSpace(bodyPart)
	if bodyPart == "" {
		return nil, fmt.Errorf("%w: empty body part", ErrInvalidWorkout)
	}

	updated, err := s.repo.UpdateBodyPart(ctx, s.userID, workoutID, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("update workout: %w", err)
	}

	s.mutex.Lock()
	for i := range s.workouts {
		if s.workouts[i].ID == updated.ID {
			s.workouts[i] = *updated
		}
	}
	s.mutex.Unlock()

	return updated, nil
}

func (s *Schedule) Reset() {
	s.mutex.Lock()
	s.workouts = nil
	s.mutex.Unlock()
}
