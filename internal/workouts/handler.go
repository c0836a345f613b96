package workouts

import (
	"context"
	"net/http"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type exercisesLister interface {
	ListByBodyPart(ctx context.Context, bodyPart string) ([]Exercise, error)
}

type ExercisesHandler struct {
	catalog exercisesLister
}

func NewExercisesHandler(catalog exercisesLister) *ExercisesHandler {
	return &ExercisesHandler{
		catalog: catalog,
	}
}

// HandleList serves GET /exercises/{bodyPart}.
func (h *ExercisesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	bodyPart := mux.Vars(r)["bodyPart"]
	if bodyPart == "" {
		http.Error(w, "body part missing", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("body_part", bodyPart))

	exercises, err := h.catalog.ListByBodyPart(ctx, bodyPart)
	if err != nil {
		log.Errorf("list exercises for %s: %s", bodyPart, err)
		http.Error(w, "failed to list exercises", apperror.HTTPStatus(err))
		return
	}

	pkg.WriteJSONResponse(w, exercises, http.StatusOK)
}
