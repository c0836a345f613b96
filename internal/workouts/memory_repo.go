package workouts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mutex    sync.RWMutex
	workouts map[string]Workout
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		workouts: make(map[string]Workout),
	}
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string) ([]Workout, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	workouts := make([]Workout, 0, 6)
	for _, w := range r.workouts {
		if w.UserID == userID {
			workouts = append(workouts, w)
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].DayOfWeek < workouts[j].DayOfWeek
	})
	return workouts, nil
}

func (r *MemoryRepo) Create(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, w := range r.workouts {
		if w.UserID == workout.UserID && w.DayOfWeek == workout.DayOfWeek {
			return nil, apperror.Conflict("workout", workout.UserID+"/"+workout.DayOfWeek.String())
		}
	}
	workout.ID = uuid.NewString()
	workout.UpdatedAt = time.Now().UTC()
	r.workouts[workout.ID] = workout
	return &workout, nil
}

func (r *MemoryRepo) UpdateBodyPart(_ context.Context, userID, workoutID, bodyPart string) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.workouts[workoutID]
	if !ok || w.UserID != userID {
		return nil, apperror.NotFound("workout", workoutID)
	}
	w.BodyPart = bodyPart
	w.UpdatedAt = time.Now().UTC()
	r.workouts[workoutID] = w
	return &w, nil
}

type MemoryExerciseRepo struct {
	exercises []Exercise
}

func NewMemoryExerciseRepo(exercises []Exercise) *MemoryExerciseRepo {
	return &MemoryExerciseRepo{
		exercises: exercises,
	}
}

func (r *MemoryExerciseRepo) ListByBodyPart(_ context.Context, bodyPart string) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for _, e := range r.exercises {
		if strings.EqualFold(e.BodyPart, bodyPart) {
			exercises = append(exercises, e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].Name < exercises[j].Name
	})
	return exercises, nil
}
