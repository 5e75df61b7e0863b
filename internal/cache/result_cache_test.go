package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/markwise/markwise-api/internal/dto"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return NewRedisStore(client, time.Hour, zerolog.Nop()), mini
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result := dto.EvaluationResult{
		Feedback:           "Solid work",
		QuestionScores:     []dto.QuestionScore{{Score: 4, Feedback: "close", MaxMarks: 5}},
		OverallScore:       80,
		TotalAwardedMarks:  4,
		TotalPossibleMarks: 5,
	}

	_, found := store.Get(ctx, "abc123")
	require.False(t, found)

	store.Put(ctx, "abc123", result)

	entry, found := store.Get(ctx, "abc123")
	require.True(t, found)
	require.Equal(t, "abc123", entry.Key)
	require.Equal(t, result, entry.Result)
	require.False(t, entry.StoredAt.IsZero())
}

func TestRedisStoreDuplicatePutIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	result := dto.EvaluationResult{Feedback: "ok", OverallScore: 50}
	store.Put(ctx, "dup", result)
	store.Put(ctx, "dup", result)

	entry, found := store.Get(ctx, "dup")
	require.True(t, found)
	require.Equal(t, result, entry.Result)
}

func TestRedisStoreDegradesWhenRedisIsDown(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()

	mini.Close()

	// Neither call may panic or surface an error to the dispatcher.
	store.Put(ctx, "gone", dto.EvaluationResult{Feedback: "lost"})
	_, found := store.Get(ctx, "gone")
	require.False(t, found)
}

func TestRedisStoreCorruptEntryIsAMiss(t *testing.T) {
	store, mini := newTestStore(t)

	require.NoError(t, mini.Set(keyPrefix+"bad", "{not json"))

	_, found := store.Get(context.Background(), "bad")
	require.False(t, found)
}

func TestNoopStore(t *testing.T) {
	var store Store = Noop{}

	store.Put(context.Background(), "x", dto.EvaluationResult{})
	_, found := store.Get(context.Background(), "x")
	require.False(t, found)
}
