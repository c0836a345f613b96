package db

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"
)

// DateParam converts a civil date into a postgres DATE argument.
func DateParam(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// NullableDateParam maps nil to SQL NULL.
func NullableDateParam(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return DateParam(*d)
}

// CivilDate converts a scanned DATE back, nil for NULL.
func CivilDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	cd := civil.DateOf(d.Time)
	return &cd
}
