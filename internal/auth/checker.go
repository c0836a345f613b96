package auth

import (
	"context"
	"net/http"
	"strings"
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

// Checker resolves a session token to the signed in user.
type Checker interface {
	UserID(ctx context.Context, token string) (string, error)
}

// TokenFromRequest reads the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

type LoginTestChecker struct {
	// token to user id
	LoggedSessions map[string]string
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]string{},
	}
}

func (c *LoginTestChecker) UserID(_ context.Context, token string) (string, error) {
	userID, ok := c.LoggedSessions[token]
	if !ok {
		return "", ErrNotLoggedIn
	}
	return userID, nil
}

type ctxKey int

const (
	ctxKeyToken ctxKey = iota
	ctxKeyUserID
)

// WithUser stores the authenticated session on the context.
func WithUser(ctx context.Context, token, userID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyToken, token)
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserFromContext returns what WithUser stored, ok is false for anonymous requests.
func UserFromContext(ctx context.Context) (token, userID string, ok bool) {
	token, _ = ctx.Value(ctxKeyToken).(string)
	userID, _ = ctx.Value(ctxKeyUserID).(string)
	return token, userID, token != "" && userID != ""
}
