package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/attendance"
	"github.com/2beens/gymstreak/internal/auth"
	"github.com/2beens/gymstreak/internal/calendar"
	"github.com/2beens/gymstreak/internal/streak"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/internal/workouts"
	"github.com/2beens/gymstreak/pkg"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
	}
}

type markAttendanceResponse struct {
	Date     civil.Date    `json:"date"`
	Attended bool          `json:"attended"`
	Streak   *streak.State `json:"streak"`
}

type todayWorkoutResponse struct {
	DayOfWeek time.Weekday      `json:"dayOfWeek"`
	RestDay   bool              `json:"restDay"`
	Workout   *workouts.Workout `json:"workout,omitempty"`
}

type updateWorkoutRequest struct {
	BodyPart string `json:"bodyPart"`
}

func (h *Handler) SetupRoutes(mainRouter *mux.Router) {
	attendanceRouter := mainRouter.PathPrefix("/attendance").Subrouter()
	attendanceRouter.HandleFunc("", h.HandleAttendanceHistory).Methods("GET").Name("attendance-history")
	attendanceRouter.HandleFunc("/{date}", h.HandleMarkAttendance).Methods("POST").Name("mark-attendance")

	streakRouter := mainRouter.PathPrefix("/streak").Subrouter()
	streakRouter.HandleFunc("", h.HandleStreak).Methods("GET").Name("streak")
	streakRouter.HandleFunc("/recompute", h.HandleRecompute).Methods("POST").Name("streak-recompute")
	streakRouter.HandleFunc("/share", h.HandleShare).Methods("GET").Name("streak-share")

	workoutsRouter := mainRouter.PathPrefix("/workouts").Subrouter()
	workoutsRouter.HandleFunc("", h.HandleWorkouts).Methods("GET").Name("workouts")
	workoutsRouter.HandleFunc("/today", h.HandleTodayWorkout).Methods("GET").Name("workouts-today")
	workoutsRouter.HandleFunc("/{id}", h.HandleUpdateWorkout).Methods("PUT").Name("workout-update")
}

// session resolves the session of the authenticated caller, writing the
// error response itself when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	token, userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil, false
	}
	s, err := h.manager.Session(r.Context(), token, userID)
	if err != nil {
		log.Errorf("get session for user [%s]: %s", userID, err)
		http.Error(w, "failed to load session", apperror.HTTPStatus(err))
		return nil, false
	}
	return s, true
}

func (h *Handler) HandleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.attendance.mark")
	defer span.End()

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	date, err := calendar.Parse(mux.Vars(r)["date"], s.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	attended, err := s.Toggle(ctx, date)
	if err != nil {
		log.Errorf("mark attendance %s for user [%s]: %s", date, s.UserID(), err)
		writeError(w, err)
		return
	}

	pkg.WriteJSONResponse(w, markAttendanceResponse{
		Date:     date,
		Attended: attended,
		Streak:   s.Streak(),
	}, http.StatusOK)
}

func (h *Handler) HandleAttendanceHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	history := s.AttendanceHistory()
	if history == nil {
		history = []attendance.Record{}
	}
	pkg.WriteJSONResponse(w, history, http.StatusOK)
}

func (h *Handler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state := s.Streak()
	if state == nil {
		http.Error(w, "streak not loaded", http.StatusServiceUnavailable)
		return
	}
	pkg.WriteJSONResponse(w, state, http.StatusOK)
}

func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.streak.recompute")
	defer span.End()

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := s.RecomputeStreak(ctx)
	if err != nil {
		log.Errorf("recompute streak for user [%s]: %s", s.UserID(), err)
		writeError(w, err)
		return
	}
	if state == nil {
		http.Error(w, "streak not loaded", http.StatusServiceUnavailable)
		return
	}
	pkg.WriteJSONResponse(w, state, http.StatusOK)
}

func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	pkg.WriteJSONResponse(w, map[string]string{"message": s.ShareMessage()}, http.StatusOK)
}

func (h *Handler) HandleWorkouts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	list := s.Workouts()
	if list == nil {
		list = []workouts.Workout{}
	}
	pkg.WriteJSONResponse(w, list, http.StatusOK)
}

func (h *Handler) HandleTodayWorkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	weekday, workout := s.TodayWorkout()
	pkg.WriteJSONResponse(w, todayWorkoutResponse{
		DayOfWeek: weekday,
		RestDay:   workout == nil,
		Workout:   workout,
	}, http.StatusOK)
}

func (h *Handler) HandleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req updateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update workout, unmarshal json params: %s", err)
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := s.UpdateWorkout(ctx, mux.Vars(r)["id"], req.BodyPart)
	if err != nil {
		log.Errorf("update workout for user [%s]: %s", s.UserID(), err)
		writeError(w, err)
		return
	}
	pkg.WriteJSONResponse(w, updated, http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidDate), errors.Is(err, workouts.ErrInvalidWorkout):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, http.StatusText(apperror.HTTPStatus(err)), apperror.HTTPStatus(err))
	}
}
