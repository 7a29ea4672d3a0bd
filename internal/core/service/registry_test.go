package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlink/bridge/internal/core/domain"
)

func newTestSession(id string) *CallSession {
	return NewCallSession(domain.CallID(id), newFakeRoomService(), 8000)
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("CA1")

	require.NoError(t, r.Create(s))

	got, err := r.Get(domain.CallID("CA1"))
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryDuplicateCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(newTestSession("CA1")))

	err := r.Create(newTestSession("CA1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateSession)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(domain.CallID("CA404"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(newTestSession("CA1")))

	r.Remove(domain.CallID("CA1"))
	r.Remove(domain.CallID("CA1"))
	r.Remove(domain.CallID("CA404"))

	assert.Equal(t, 0, r.Count())
	_, err := r.Get(domain.CallID("CA1"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := domain.CallID(fmt.Sprintf("CA%d", n))
			assert.NoError(t, r.Create(newTestSession(id.String())))
			_, err := r.Get(id)
			assert.NoError(t, err)
			r.Remove(id)
			r.Remove(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
}

func TestRegistryExpirePending(t *testing.T) {
	r := NewRegistry()

	stale := newTestSession("CA1")
	stale.createdAt = time.Now().Add(-3 * time.Minute)

	attached := newTestSession("CA2")
	attached.createdAt = time.Now().Add(-3 * time.Minute)
	require.True(t, attached.TryAttach())

	fresh := newTestSession("CA3")

	for _, s := range []*CallSession{stale, attached, fresh} {
		require.NoError(t, r.Create(s))
	}

	expired := r.ExpirePending(2 * time.Minute)
	require.Len(t, expired, 1)
	assert.Equal(t, domain.CallID("CA1"), expired[0].CallID())
	assert.Equal(t, 2, r.Count(), "attached and fresh sessions survive the sweep")
	assert.False(t, fresh.Attached())

	// The expired session holds the attachment slot, so a late
	// streaming connection cannot claim it.
	assert.False(t, expired[0].TryAttach())
}

func TestRegistryDrain(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(newTestSession("CA1")))
	require.NoError(t, r.Create(newTestSession("CA2")))

	drained := r.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Drain())
}
