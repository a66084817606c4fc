package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antinea2359/app-tarot/internal/app"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	r := app.NewRegistry(context.Background(), &mockOracle{}, nil, 4, time.Hour)

	s, created := r.GetOrCreate("")
	require.True(t, created)
	require.NotEmpty(t, s.ID())

	again, created := r.GetOrCreate(s.ID())
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := r.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, "unknown", other.ID())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_EvictsBeyondCapacity(t *testing.T) {
	r := app.NewRegistry(context.Background(), &mockOracle{}, nil, 1, time.Hour)

	first, _ := r.GetOrCreate("")
	views, _ := first.Subscribe()
	second, _ := r.GetOrCreate("")

	_, ok := r.Get(first.ID())
	assert.False(t, ok)
	_, ok = r.Get(second.ID())
	assert.True(t, ok)

	_, open := <-views
	assert.False(t, open, "evicted session should release its subscribers")
}

func TestRegistry_ExpiresAfterTTL(t *testing.T) {
	r := app.NewRegistry(context.Background(), &mockOracle{}, nil, 4, 50*time.Millisecond)

	s, _ := r.GetOrCreate("")
	views, _ := s.Subscribe()

	require.Eventually(t, func() bool {
		_, ok := r.Get(s.ID())
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case _, open := <-views:
		assert.False(t, open, "expired session should release its subscribers")
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber still open after expiry")
	}

	fresh, created := r.GetOrCreate(s.ID())
	assert.True(t, created)
	assert.NotEqual(t, s.ID(), fresh.ID())
}

func TestRegistry_Close(t *testing.T) {
	r := app.NewRegistry(context.Background(), &mockOracle{}, nil, 4, time.Hour)
	s, _ := r.GetOrCreate("")
	r.Close()

	_, ok := r.Get(s.ID())
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}
