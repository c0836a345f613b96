package workouts

import (
	"time"
)

// DefaultBodyParts is the schedule every new user starts with. Sunday is
// the rest day and has none.
var DefaultBodyParts = [7]string{
	time.Sunday:    "",
	time.Monday:    "Legs",
	time.Tuesday:   "Chest",
	time.Wednesday: "Back",
	time.Thursday:  "Shoulders",
	time.Friday:    "Arms",
	time.Saturday:  "Core",
}

type Workout struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	DayOfWeek time.Weekday `json:"dayOfWeek"`
	BodyPart  string       `json:"bodyPart"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Exercises []Exercise   `json:"exercises,omitempty"`
}

type Exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BodyPart    string `json:"bodyPart"`
	DefaultSets int    `json:"defaultSets,omitempty"`
	DefaultReps int    `json:"defaultReps,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// SeedExercises fills an empty catalog.
var SeedExercises = []Exercise{
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a01", Name: "Back Squat", BodyPart: "Legs", DefaultSets: 4, DefaultReps: 8},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a02", Name: "Romanian Deadlift", BodyPart: "Legs", DefaultSets: 3, DefaultReps: 10},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a03", Name: "Bench Press", BodyPart: "Chest", DefaultSets: 4, DefaultReps: 8},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a04", Name: "Incline Dumbbell Press", BodyPart: "Chest", DefaultSets: 3, DefaultReps: 10},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a05", Name: "Pull Up", BodyPart: "Back", DefaultSets: 4, DefaultReps: 6},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a06", Name: "Barbell Row", BodyPart: "Back", DefaultSets: 3, DefaultReps: 10},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a07", Name: "Overhead Press", BodyPart: "Shoulders", DefaultSets: 4, DefaultReps: 8},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a08", Name: "Lateral Raise", BodyPart: "Shoulders", DefaultSets: 3, DefaultReps: 15},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a09", Name: "Barbell Curl", BodyPart: "Arms", DefaultSets: 3, DefaultReps: 12},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a10", Name: "Triceps Dip", BodyPart: "Arms", DefaultSets: 3, DefaultReps: 12},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a11", Name: "Plank", BodyPart: "Core", DefaultSets: 3, DefaultReps: 1},
	{ID: "7b0f3c52-3f42-4a8e-9d61-0c1f2a6f0a12", Name: "Hanging Leg Raise", BodyPart: "Core", DefaultSets: 3, DefaultReps: 12},
}
