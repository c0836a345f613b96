package workouts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/gymstreak/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

type ExerciseRepository interface {
	ListByBodyPart(ctx context.Context, bodyPart string) ([]Exercise, error)
}

// Catalog serves exercises per body part, caching the encoded lists.
type Catalog struct {
	repo  ExerciseRepository
	cache *freecache.Cache
	ttl   time.Duration
}

func NewCatalog(repo ExerciseRepository, cacheSizeMB int, ttl time.Duration) *Catalog {
	return &Catalog{
		repo:  repo,
		cache: freecache.NewCache(cacheSizeMB * megabyte),
		ttl:   ttl,
	}
}

func (c *Catalog) ListByBodyPart(ctx context.Context, bodyPart string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.catalog.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte("exercises::" + strings.ToLower(strings.TrimSpace(bodyPart)))
	if cached, err := c.cache.Get(cacheKey); err == nil {
		var exercises []Exercise
		if err := json.Unmarshal(cached, &exercises); err == nil {
			log.Tracef("exercises for %s found in cache", bodyPart)
			return exercises, nil
		} else {
			log.Errorf("unmarshal cached exercises for %s: %s", bodyPart, err)
		}
	}

	exercises, err := c.repo.ListByBodyPart(ctx, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	if encoded, err := json.Marshal(exercises); err != nil {
		log.Errorf("marshal exercises for %s: %s", bodyPart, err)
	} else if err := c.cache.Set(cacheKey, encoded, int(c.ttl.Seconds())); err != nil {
		log.Errorf("cache exercises for %s: %s", bodyPart, err)
	}

	return exercises, nil
}
