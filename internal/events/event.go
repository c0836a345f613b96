package events

import (
	"time"

	"github.com/2beens/gymstreak/internal/streak"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type Type string

const (
	TypeAttendanceMarked   Type = "attendance_marked"
	TypeAttendanceUnmarked Type = "attendance_unmarked"
	TypeStreakRecomputed   Type = "streak_recomputed"
)

// StreakEvent is published after a user's streak changed.
type StreakEvent struct {
	ID            string      `json:"id"`
	Type          Type        `json:"type"`
	UserID        string      `json:"userId"`
	Date          *civil.Date `json:"date,omitempty"`
	CurrentStreak int         `json:"currentStreak"`
	MaxStreak     int         `json:"maxStreak"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewStreakEvent snapshots state. date is the toggled day, nil for a
// recompute.
func NewStreakEvent(eventType Type, date *civil.Date, state streak.State, now time.Time) StreakEvent {
	event := StreakEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		UserID:        state.UserID,
		CurrentStreak: state.CurrentStreak,
		MaxStreak:     state.MaxStreak,
		Timestamp:     now.UTC(),
	}
	if date != nil {
		d := *date
		event.Date = &d
	}
	return event
}
