package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates every table the service needs. All statements are
// idempotent so it can be re-applied on an existing database.
const Schema = `
CREATE TABLE IF NOT EXISTS public.app_user
(
    id            UUID PRIMARY KEY,
    email         VARCHAR NOT NULL UNIQUE,
    password_hash VARCHAR NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS public.attendance
(
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL,
    date       DATE NOT NULL,
    attended   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_attendance_user_date UNIQUE (user_id, date)
);

CREATE INDEX IF NOT EXISTS ix_attendance_user_date ON public.attendance (user_id, date DESC);

CREATE TABLE IF NOT EXISTS public.streaks
(
    id                   UUID PRIMARY KEY,
    user_id              UUID NOT NULL UNIQUE,
    current_streak       INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    max_streak           INTEGER NOT NULL DEFAULT 0 CHECK (max_streak >= current_streak),
    start_date           DATE,
    last_attendance_date DATE,
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS public.workouts
(
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
    body_part   VARCHAR NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_workouts_user_day UNIQUE (user_id, day_of_week)
);

CREATE TABLE IF NOT EXISTS public.exercise
(
    id           UUID PRIMARY KEY,
    name         VARCHAR NOT NULL,
    body_part    VARCHAR NOT NULL,
    default_sets INTEGER,
    default_reps INTEGER,
    video_url    VARCHAR
);

CREATE INDEX IF NOT EXISTS ix_exercise_body_part ON public.exercise (body_part);
`

// ApplySchema runs Schema through a database/sql connection, so setup tools
// do not need a pgx pool.
func ApplySchema(ctx context.Context, sqlDB *sql.DB) error {
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
