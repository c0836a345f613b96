package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/telemetry/tracing"
	"github.com/2beens/gymstreak/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL        = 24 * 7 * time.Hour
	MinPasswordLength = 6
	sessionKeyPrefix  = "gymstreak-session||"
	tokensSetKey      = "gymstreak-sessions"
	tokenLength       = 35
)

var (
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidSignup    = errors.New("invalid signup")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrSessionExpired   = errors.New("session expired")
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	users       UserRepository
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	users UserRepository,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		users:          users,
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Signup creates the account and returns the new user id.
func (s *Service) Signup(ctx context.Context, creds Credentials) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := mail.ParseAddress(creds.Email); err != nil {
		return "", fmt.Errorf("%w: bad email", ErrInvalidSignup)
	}
	if len(creds.Password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password shorter than %d", ErrInvalidSignup, MinPasswordLength)
	}

	hash, err := pkg.HashPassword(creds.Password)
	if errors.Is(err, pkg.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignup, err)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, creds.Email, hash)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	log.Printf("new user signed up: %s", user.ID)
	return user.ID, nil
}

// Login checks the credentials and opens a session, returning its token.
func (s *Service) Login(ctx context.Context, creds Credentials, createdAt time.Time) (token, userID string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", "", ErrWrongCredentials
		}
		return "", "", fmt.Errorf("get user: %w", err)
	}
	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		return "", "", ErrWrongCredentials
	}

	token, err = s.RandStringFunc(tokenLength)
	if err != nil {
		return "", "", err
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, sessionKey, sessionValue(user.ID, createdAt), s.ttl).Err(); err != nil {
		return "", "", err
	}

	// add token to list of sessions
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", "", err
	}

	return token, user.ID, nil
}

// Logout ends the session and reports whether it existed.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	deleted, err := s.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return false, err
	}

	// remove token from the list of sessions
	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, err
	}

	return deleted > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old.
// It returns the tokens it removed.
func (s *Service) ScanAndClean(ctx context.Context) []string {
	sessionTokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return nil
	}

	if len(sessionTokens) == 0 {
		log.Debugln("auth service, scan and clean abort, no sessions")
		return nil
	}

	log.Debugf("auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		val, err := s.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			// expired in redis already, only the set entry is left
			toRemove = append(toRemove, token)
			continue
		}
		if err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			continue
		}

		_, createdAt, err := parseSessionValue(val)
		if err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			continue
		}

		if time.Since(createdAt) > s.ttl {
			toRemove = append(toRemove, token)
		}
	}

	removed := make([]string, 0, len(toRemove))
	for _, token := range toRemove {
		if err := s.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
			continue
		}
		// the token is unusable from here on, even if the set entry stays
		removed = append(removed, token)

		// remove token from the list of sessions
		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
			continue
		}
	}
	log.Debugf("auth service, scan and clean done, %d sessions removed", len(removed))
	return removed
}

func sessionValue(userID string, createdAt time.Time) string {
	return userID + "|" + strconv.FormatInt(createdAt.Unix(), 10)
}

func parseSessionValue(val string) (userID string, createdAt time.Time, err error) {
	userID, createdAtStr, found := strings.Cut(val, "|")
	if !found || userID == "" {
		return "", time.Time{}, fmt.Errorf("malformed session value: %q", val)
	}
	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed session timestamp: %w", err)
	}
	return userID, time.Unix(createdAtUnix, 0), nil
}
