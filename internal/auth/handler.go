package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// sessionKeeper opens and closes the per user session state.
type sessionKeeper interface {
	SignIn(ctx context.Context, token, userID string) error
	SignOut(token string)
}

type Handler struct {
	service  *Service
	sessions sessionKeeper
	now      func() time.Time
}

func NewHandler(service *Service, sessions sessionKeeper) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		now:      time.Now,
	}
}

// SetupRoutes registers /auth/*. limiters wrap signup and login only.
func (h *Handler) SetupRoutes(mainRouter *mux.Router, limiters ...mux.MiddlewareFunc) {
	authRouter := mainRouter.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/logout", h.HandleLogout).Methods("POST").Name("logout")

	limitedRouter := authRouter.NewRoute().Subrouter()
	limitedRouter.Use(limiters...)
	limitedRouter.HandleFunc("/signup", h.HandleSignup).Methods("POST").Name("signup")
	limitedRouter.HandleFunc("/login", h.HandleLogin).Methods("POST").Name("login")
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Errorf("signup, unmarshal json params: %s", err)
		http.Error(w, "signup failed", http.StatusBadRequest)
		return
	}

	userID, err := h.service.Signup(ctx, creds)
	switch {
	case errors.Is(err, ErrInvalidSignup):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case apperror.IsConflict(err):
		http.Error(w, "email already registered", http.StatusConflict)
		return
	case err != nil:
		log.Errorf("signup: %s", err)
		http.Error(w, "signup failed", apperror.HTTPStatus(err))
		return
	}

	pkg.WriteJSONResponse(w, map[string]string{"userId": userID}, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		http.Error(w, "error, email or password empty", http.StatusBadRequest)
		return
	}

	token, userID, err := h.service.Login(ctx, creds, h.now())
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			log.Tracef("failed login attempt for: %s", creds.Email)
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	// a failed preload is not fatal, the session loads on first use
	if err := h.sessions.SignIn(ctx, token, userID); err != nil {
		log.Errorf("sign in session for user [%s]: %s", userID, err)
	}

	pkg.WriteJSONResponse(w, map[string]string{"token": token, "userId": userID}, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	h.sessions.SignOut(token)
	loggedOut, err := h.service.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteResponse(w, pkg.ContentType.Text, "logged-out", http.StatusOK)
}
