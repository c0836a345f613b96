//go:build integration_test

package attendance_test

import (
	"context"
	"testing"

	"github.com/2beens/gymstreak/internal/apperror"
	"github.com/2beens/gymstreak/internal/attendance"
	pkgtesting "github.com/2beens/gymstreak/pkg/testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	ctx := context.Background()
	repo := attendance.NewRepo(pkgtesting.GetPostgresPool(t))
	userID := uuid.NewString()

	records, err := repo.Fetch(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, records)

	monday, err := repo.Insert(ctx, userID, day("2024-03-04"))
	require.NoError(t, err)
	assert.False(t, monday.CreatedAt.IsZero())

	_, err = repo.Insert(ctx, userID, day("2024-03-04"))
	assert.True(t, apperror.IsConflict(err))

	_, err = repo.Insert(ctx, userID, day("2024-03-09"))
	require.NoError(t, err)

	records, err = repo.Fetch(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, day("2024-03-09"), records[0].Date)
	assert.Equal(t, day("2024-03-04"), records[1].Date)
	assert.Equal(t, userID, records[1].UserID)

	require.NoError(t, repo.Delete(ctx, monday.ID))
	assert.True(t, apperror.IsNotFound(repo.Delete(ctx, monday.ID)))
	assert.True(t, apperror.IsNotFound(repo.Delete(ctx, "not-a-uuid")))
}
