package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// UserID returns the user owning token, ErrNotLoggedIn for unknown tokens
// and ErrSessionExpired once the token outlived the TTL.
func (c *LoginChecker) UserID(ctx context.Context, token string) (string, error) {
	val, err := c.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotLoggedIn
		}
		return "", fmt.Errorf("get session: %w", err)
	}

	userID, createdAt, err := parseSessionValue(val)
	if err != nil {
		return "", err
	}
	if c.now().Sub(createdAt) > c.ttl {
		return "", ErrSessionExpired
	}

	return userID, nil
}
