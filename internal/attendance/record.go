package attendance

import (
	"time"

	"cloud.google.com/go/civil"
)

// Record marks a single day the user worked out. Records are never updated;
// un-marking a day deletes its record.
type Record struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Date      civil.Date `json:"date"`
	Attended  bool       `json:"attended"`
	CreatedAt time.Time  `json:"createdAt"`
}
