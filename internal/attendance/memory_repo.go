package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// MemoryRepo keeps attendance in process memory. Used with the "memory"
// storage backend and in tests.
type MemoryRepo struct {
	mutex   sync.RWMutex
	records map[string]Record // by record id
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (r *MemoryRepo) Fetch(_ context.Context, userID string) ([]Record, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})

	return records, nil
}

func (r *MemoryRepo) Insert(_ context.Context, userID string, date civil.Date) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, rec := range r.records {
		if rec.UserID == userID && rec.Date == date {
			return nil, apperror.Conflict("attendance", date.String())
		}
	}

	rec := Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Attended:  true,
		CreatedAt: r.now().UTC(),
	}
	r.records[rec.ID] = rec

	return &rec, nil
}

func (r *MemoryRepo) Delete(_ context.Context, recordID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.records[recordID]; !ok {
		return apperror.NotFound("attendance record", recordID)
	}
	delete(r.records, recordID)

	return nil
}
