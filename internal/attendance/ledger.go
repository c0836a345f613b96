package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/2beens/gymstreak/internal/apperror"

	"cloud.google.com/go/civil"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=attendance_test

// Repository is the slice of the data access layer the ledger needs.
type Repository interface {
	Fetch(ctx context.Context, userID string) ([]Record, error)
	Insert(ctx context.Context, userID string, date civil.Date) (*Record, error)
	Delete(ctx context.Context, recordID string) error
}

// Ledger caches one user's attendance records, newest first, and keeps the
// cache in step with the repository. At most one record exists per date.
type Ledger struct {
	userID string
	repo   Repository

	mutex   sync.RWMutex
	records []Record
}

func NewLedger(userID string, repo Repository) *Ledger {
	return &Ledger{
		userID: userID,
		repo:   repo,
	}
}

func (l *Ledger) UserID() string {
	return l.userID
}

// Load replaces the cache with whatever the repository holds.
func (l *Ledger) Load(ctx context.Context) ([]Record, error) {
	records, err := l.repo.Fetch(ctx, l.userID)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sortNewestFirst(sorted)

	l.mutex.Lock()
	l.records = sorted
	l.mutex.Unlock()

	log.Debugf("attendance ledger loaded for user [%s]: %d records", l.userID, len(sorted))

	return l.History(), nil
}

func (l *Ledger) Add(ctx context.Context, date civil.Date) (Record, error) {
	if l.Contains(date) {
		return Record{}, apperror.Conflict("attendance", date.String())
	}

	rec, err := l.repo.Insert(ctx, l.userID, date)
	if err != nil {
		return Record{}, fmt.Errorf("add attendance: %w", err)
	}

	l.mutex.Lock()
	l.records = append(l.records, *rec)
	sortNewestFirst(l.records)
	l.mutex.Unlock()

	return *rec, nil
}

func (l *Ledger) Remove(ctx context.Context, recordID string) error {
	if err := l.repo.Delete(ctx, recordID); err != nil {
		return fmt.Errorf("remove attendance: %w", err)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	for i, rec := range l.records {
		if rec.ID == recordID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			break
		}
	}

	return nil
}

func (l *Ledger) Contains(date civil.Date) bool {
	_, ok := l.Find(date)
	return ok
}

func (l *Ledger) Find(date civil.Date) (Record, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, rec := range l.records {
		if rec.Date == date {
			return rec, true
		}
	}
	return Record{}, false
}

// Attended reports whether date holds an attended record.
func (l *Ledger) Attended(date civil.Date) bool {
	rec, ok := l.Find(date)
	return ok && rec.Attended
}

func (l *Ledger) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.records)
}

// History returns a copy of the cached records, newest first.
func (l *Ledger) History() []Record {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	history := make([]Record, len(l.records))
	copy(history, l.records)
	return history
}

// Dates returns the attended dates, newest first.
func (l *Ledger) Dates() []civil.Date {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	dates := make([]civil.Date, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Attended {
			dates = append(dates, rec.Date)
		}
	}
	return dates
}

// Reset drops the cache, on sign out.
func (l *Ledger) Reset() {
	l.mutex.Lock()
	l.records = nil
	l.mutex.Unlock()
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}
