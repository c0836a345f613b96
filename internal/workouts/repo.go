package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidWorkout = errors.New("invalid workout")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) ListByUser(ctx context.Context, userID string) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id::text, user_id::text, day_of_week, body_part, updated_at
			FROM workouts
			WHERE user_id = $1
			ORDER BY day_of_week
		`,
		userID,
	)
	if err != nil {
		return nil, apperror.Transient("workouts [query]", err)
	}
	defer rows.Close()

	workouts := make([]Workout, 0, 6)
	for rows.Next() {
		var (
			w   Workout
			day int16
		)
		if err := rows.Scan(&w.ID, &w.UserID, &day, &w.BodyPart, &w.UpdatedAt); err != nil {
			return nil, apperror.Transient("workouts [rows scan]", err)
		}
		w.DayOfWeek = time.Weekday(day)
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Transient("workouts [rows]", err)
	}

	return workouts, nil
}

func (r *Repo) Create(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout.ID = uuid.NewString()
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO workouts (id, user_id, day_of_week, body_part)
			VALUES ($1, $2, $3, $4)
			RETURNING updated_at
		`,
		workout.ID, workout.UserID, int16(workout.DayOfWeek), workout.BodyPart,
	).Scan(&workout.UpdatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, apperror.Conflict("workout", fmt.Sprintf("%s/%s", workout.UserID, workout.DayOfWeek))
		}
		return nil, apperror.Transient("workouts [insert]", err)
	}

	return &workout, nil
}

func (r *Repo) UpdateBodyPart(ctx context.Context, userID, workoutID, bodyPart string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	if _, parseErr := uuid.Parse(workoutID); parseErr != nil {
		return nil, apperror.NotFound("workout", workoutID)
	}

	var (
		w   Workout
		day int16
	)
	err = r.db.QueryRow(
		ctx,
		`
			UPDATE workouts
			SET body_part = $3, updated_at = now()
			WHERE id = $1 AND user_id = $2
			RETURNING id::text, user_id::text, day_of_week, body_part, updated_at
		`,
		workoutID, userID, bodyPart,
	).Scan(&w.ID, &w.UserID, &day, &w.BodyPart, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("workout", workoutID)
		}
		return nil, apperror.Transient("workouts [update]", err)
	}
	w.DayOfWeek = time.Weekday(day)

	return &w, nil
}

type ExerciseRepo struct {
	db *pgxpool.Pool
}

func NewExerciseRepo(db *pgxpool.Pool) *ExerciseRepo {
	return &ExerciseRepo{
		db: db,
	}
}

func (r *ExerciseRepo) ListByBodyPart(ctx context.Context, bodyPart string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("body_part", bodyPart))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id::text, name, body_part,
			    COALESCE(default_sets, 0), COALESCE(default_reps, 0), COALESCE(video_url, '')
			FROM exercise
			WHERE lower(body_part) = lower($1)
			ORDER BY name
		`,
		bodyPart,
	)
	if err != nil {
		return nil, apperror.Transient("exercises [query]", err)
	}
	defer rows.Close()

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.BodyPart, &e.DefaultSets, &e.DefaultReps, &e.VideoURL); err != nil {
			return nil, apperror.Transient("exercises [rows scan]", err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Transient("exercises [rows]", err)
	}

	return exercises, nil
}

// Seed inserts exercises that are not there yet.
func (r *ExerciseRepo) Seed(ctx context.Context, exercises []Exercise) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.seed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	batch := &pgx.Batch{}
	for _, e := range exercises {
		batch.Queue(
			`
				INSERT INTO exercise (id, name, body_part, default_sets, default_reps, video_url)
				VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
				ON CONFLICT (id) DO NOTHING
			`,
			e.ID, e.Name, e.BodyPart, e.DefaultSets, e.DefaultReps, e.VideoURL,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var inserted int64
	for range exercises {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seed exercise: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}
