package program

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func newV7(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	assert.NoError(t, err)
	return id
}

func TestRequestGuard_ConsumeOnce(t *testing.T) {
	guard := NewRequestGuard(time.Minute)
	id := newV7(t)

	check.NoError(t, guard.Consume(id))
	check.True(t, errors.Is(guard.Consume(id), ErrReplayedRequest))
	check.NoError(t, guard.Consume(newV7(t)))
	check.Equal(t, 2, guard.Len())
}

func TestRequestGuard_RejectsNonTimeOrderedIDs(t *testing.T) {
	guard := NewRequestGuard(time.Minute)
	check.True(t, errors.Is(guard.Consume(uuid.New()), ErrStaleRequest))
}

func TestRequestGuard_Window(t *testing.T) {
	guard := NewRequestGuard(time.Minute)
	id := newV7(t)

	guard.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	check.True(t, errors.Is(guard.Consume(id), ErrStaleRequest))

	guard.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	check.True(t, errors.Is(guard.Consume(id), ErrStaleRequest))

	guard.now = time.Now
	check.NoError(t, guard.Consume(id))
}

func TestRequestGuard_CleanupExpired(t *testing.T) {
	guard := NewRequestGuard(time.Minute)
	id := newV7(t)
	assert.NoError(t, guard.Consume(id))

	check.Equal(t, 0, guard.CleanupExpired())
	check.Equal(t, 1, guard.Len())

	guard.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	check.Equal(t, 1, guard.CleanupExpired())
	check.Equal(t, 0, guard.Len())

	// Once forgotten, the ID is too old to be accepted again.
	check.True(t, errors.Is(guard.Consume(id), ErrStaleRequest))
}

func TestRequestGuard_StartExpirationCleanup(t *testing.T) {
	guard := NewRequestGuard(50 * time.Millisecond)
	assert.NoError(t, guard.Consume(newV7(t)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	guard.StartExpirationCleanup(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for guard.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	check.Equal(t, 0, guard.Len())
}
