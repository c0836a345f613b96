package streak

import (
	"context"
	"errors"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/db"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const selectColumns = `id::text, user_id::text, current_streak, max_streak, start_date, last_attendance_date, updated_at`

func (r *Repo) Fetch(ctx context.Context, userID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.fetch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	state, err := scanState(r.db.QueryRow(
		ctx,
		`SELECT `+selectColumns+` FROM streaks WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("streak", userID)
		}
		return nil, apperror.Transient("streak [query row]", err)
	}

	return state, nil
}

func (r *Repo) Upsert(ctx context.Context, userID string, initial State) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	// the no-op update makes RETURNING yield the existing row on conflict
	state, err := scanState(r.db.QueryRow(
		ctx,
		`
			INSERT INTO streaks (id, user_id, current_streak, max_streak, start_date, last_attendance_date, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING `+selectColumns,
		uuid.NewString(),
		userID,
		initial.CurrentStreak,
		initial.MaxStreak,
		db.NullableDateParam(initial.StartDate),
		db.NullableDateParam(initial.LastAttendanceDate),
		initial.UpdatedAt,
	))
	if err != nil {
		return nil, apperror.Transient("streak [upsert]", err)
	}

	return state, nil
}

func (r *Repo) Update(ctx context.Context, state State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("streak.id", state.ID),
		attribute.Int("streak.current", state.CurrentStreak),
		attribute.Int("streak.max", state.MaxStreak),
	)

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE streaks
			SET current_streak = $2,
			    max_streak = $3,
			    start_date = $4,
			    last_attendance_date = $5,
			    updated_at = $6
			WHERE id = $1
		`,
		state.ID,
		state.CurrentStreak,
		state.MaxStreak,
		db.NullableDateParam(state.StartDate),
		db.NullableDateParam(state.LastAttendanceDate),
		state.UpdatedAt,
	)
	if err != nil {
		return apperror.Transient("streak [update]", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("streak", state.ID)
	}

	return nil
}

func (r *Repo) ListUserIDs(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streak.list_user_ids")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT user_id::text FROM streaks ORDER BY user_id`)
	if err != nil {
		return nil, apperror.Transient("streak user ids [query]", err)
	}

	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperror.Transient("streak user ids [collect]", err)
	}

	return userIDs, nil
}

func scanState(row pgx.Row) (*State, error) {
	var (
		state     State
		startDate pgtype.Date
		lastDate  pgtype.Date
	)
	err := row.Scan(
		&state.ID,
		&state.UserID,
		&state.CurrentStreak,
		&state.MaxStreak,
		&startDate,
		&lastDate,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	state.StartDate = db.CivilDate(startDate)
	state.LastAttendanceDate = db.CivilDate(lastDate)
	return &state, nil
}
