package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

func TestSessionRepositoryStreak(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	repo := NewSessionRepository(client, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := repo.IncrementStreak(ctx, "stu-1", "sess-1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, time.Hour, mr.TTL("escalation:inactivity:stu-1:sess-1"))

	require.NoError(t, repo.ResetStreak(ctx, "stu-1", "sess-1"))
	n, err := repo.Streak(ctx, "stu-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.Streak(ctx, "stu-1", "other")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("escalation:inactivity:stu-1:sess-1"))
}

func TestSessionRepositoryDisabled(t *testing.T) {
	repo := NewSessionRepository(nil, 0)
	assert.False(t, repo.Enabled())
	_, err := repo.IncrementStreak(context.Background(), "stu-1", "s")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.ResetStreak(context.Background(), "stu-1", "s"))
}
