package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for i := int64(1); i <= 3; i++ {
		q.Push(domain.Member{ID: i})
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		m, ok, err := q.Pop(context.Background(), time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, m.ID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopTimeout(t *testing.T) {
	q := New()

	start := time.Now()
	_, ok, err := q.Pop(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(domain.Member{ID: 7})
	}()

	m, ok, err := q.Pop(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), m.ID)
}

func TestQueue_PopCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := q.Pop(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_StaleNotification(t *testing.T) {
	q := New()
	q.Push(domain.Member{ID: 1})

	m, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, int64(1), m.ID)

	// the pending wake-up from the first push must not produce a phantom member
	_, ok, err := q.Pop(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
