package attendance

import (
	"context"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/db"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/pkg"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Fetch(ctx context.Context, userID string) (_ []Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.attendance.fetch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id::text, user_id::text, date, attended, created_at
			FROM attendance
			WHERE user_id = $1
			ORDER BY date DESC
		`,
		userID,
	)
	if err != nil {
		return nil, apperror.Transient("attendance [query]", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec  Record
			date pgtype.Date
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &date, &rec.Attended, &rec.CreatedAt); err != nil {
			return nil, apperror.Transient("attendance [rows scan]", err)
		}
		if d := db.CivilDate(date); d != nil {
			rec.Date = *d
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Transient("attendance [rows]", err)
	}

	return records, nil
}

func (r *Repo) Insert(ctx context.Context, userID string, date civil.Date) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.attendance.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("date", date.String()),
	)

	rec := Record{
		ID:       uuid.NewString(),
		UserID:   userID,
		Date:     date,
		Attended: true,
	}
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO attendance (id, user_id, date, attended)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`,
		rec.ID, rec.UserID, db.DateParam(date), rec.Attended,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, apperror.Conflict("attendance", date.String())
		}
		return nil, apperror.Transient("attendance [insert]", err)
	}

	return &rec, nil
}

func (r *Repo) Delete(ctx context.Context, recordID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.attendance.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("record.id", recordID))

	if _, parseErr := uuid.Parse(recordID); parseErr != nil {
		return apperror.NotFound("attendance record", recordID)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, recordID)
	if err != nil {
		return apperror.Transient("attendance [delete]", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("attendance record", recordID)
	}

	return nil
}
