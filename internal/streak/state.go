package streak

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// State is the persisted streak of one user.
type State struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"userId"`
	CurrentStreak      int         `json:"currentStreak"`
	MaxStreak          int         `json:"maxStreak"`
	StartDate          *civil.Date `json:"startDate"`
	LastAttendanceDate *civil.Date `json:"lastAttendanceDate"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// Clone returns a copy that shares no date pointers with s.
func (s State) Clone() State {
	c := s
	if s.StartDate != nil {
		d := *s.StartDate
		c.StartDate = &d
	}
	if s.LastAttendanceDate != nil {
		d := *s.LastAttendanceDate
		c.LastAttendanceDate = &d
	}
	return c
}

// Check verifies max >= current >= 0, and that the dates are set exactly
// when a streak is running.
func (s State) Check() error {
	if s.CurrentStreak < 0 {
		return fmt.Errorf("negative current streak: %d", s.CurrentStreak)
	}
	if s.MaxStreak < s.CurrentStreak {
		return fmt.Errorf("max streak %d below current streak %d", s.MaxStreak, s.CurrentStreak)
	}
	running := s.CurrentStreak > 0
	if running != (s.StartDate != nil) || running != (s.LastAttendanceDate != nil) {
		return fmt.Errorf("streak dates out of sync with current streak %d", s.CurrentStreak)
	}
	return nil
}

func (s State) String() string {
	return fmt.Sprintf("streak{user=%s current=%d max=%d start=%s last=%s}",
		s.UserID, s.CurrentStreak, s.MaxStreak, dateString(s.StartDate), dateString(s.LastAttendanceDate))
}

func dateString(d *civil.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
