package streak

import (
	"context"
	"sort"
	"sync"

	"github.com/2beens/gymstreak/internal/apperror"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mutex  sync.RWMutex
	byUser map[string]State
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byUser: make(map[string]State),
	}
}

func (r *MemoryRepo) Fetch(_ context.Context, userID string) (*State, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	state, ok := r.byUser[userID]
	if !ok {
		return nil, apperror.NotFound("streak", userID)
	}
	s := state.Clone()
	return &s, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, userID string, initial State) (*State, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state, ok := r.byUser[userID]
	if !ok {
		state = initial.Clone()
		state.ID = uuid.NewString()
		state.UserID = userID
		r.byUser[userID] = state
	}
	s := state.Clone()
	return &s, nil
}

func (r *MemoryRepo) Update(_ context.Context, state State) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.byUser[state.UserID]
	if !ok || stored.ID != state.ID {
		return apperror.NotFound("streak", state.ID)
	}
	r.byUser[state.UserID] = state.Clone()
	return nil
}

func (r *MemoryRepo) ListUserIDs(_ context.Context) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	userIDs := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	return userIDs, nil
}
