package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlink/bridge/internal/core/domain"
)

func TestBridgeSecondStreamRejected(t *testing.T) {
	rooms := newFakeRoomService()
	rooms.freshConns = true
	registry := NewRegistry()
	b := NewBridgeService(rooms, registry, 8000)

	_, err := b.StartCall(context.Background(), domain.CallID("CA1"))
	require.NoError(t, err)

	first := newFakeMediaStream()
	first.inbound <- []byte(`{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1"}}`)
	done := make(chan error, 1)
	go func() { done <- b.Relay(context.Background(), domain.CallID("CA1"), first) }()

	require.Eventually(t, func() bool {
		return len(rooms.Conns()) == 1
	}, 2*time.Second, 10*time.Millisecond, "first stream connects")

	// A second streaming connection for the same call is turned away
	// without disturbing the live one.
	err = b.Relay(context.Background(), domain.CallID("CA1"), newFakeMediaStream())
	var cerr *domain.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, domain.ErrStreamAttached)

	assert.Len(t, rooms.Conns(), 1, "no second room connection opened")
	assert.Equal(t, 1, registry.Count(), "live session untouched")
	conns := rooms.Conns()
	assert.Equal(t, int32(0), conns[0].disconnects.Load(), "live connection not torn down")

	first.inbound <- []byte(`{"event":"stop"}`)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first relay did not finish")
	}

	assert.Equal(t, int32(1), conns[0].disconnects.Load(), "exactly one disconnect over the call")
	assert.Equal(t, 0, registry.Count())
}

func TestBridgeSweepExpiresPendingSession(t *testing.T) {
	rooms := newFakeRoomService()
	registry := NewRegistry()
	b := NewBridgeService(rooms, registry, 8000)

	_, err := b.StartCall(context.Background(), domain.CallID("CA1"))
	require.NoError(t, err)
	stale, err := registry.Get(domain.CallID("CA1"))
	require.NoError(t, err)
	stale.createdAt = time.Now().Add(-2 * pendingGrace)

	_, err = b.StartCall(context.Background(), domain.CallID("CA2"))
	require.NoError(t, err)

	b.sweepPending()

	assert.Equal(t, 1, registry.Count())
	_, err = registry.Get(domain.CallID("CA1"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = registry.Get(domain.CallID("CA2"))
	assert.NoError(t, err)

	// A streaming connection arriving for the expired call finds nothing.
	err = b.Relay(context.Background(), domain.CallID("CA1"), newFakeMediaStream())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBridgeShutdownDuringAttach(t *testing.T) {
	rooms := newFakeRoomService()
	rooms.freshConns = true
	registry := NewRegistry()
	b := NewBridgeService(rooms, registry, 8000)

	_, err := b.StartCall(context.Background(), domain.CallID("CA1"))
	require.NoError(t, err)

	stream := newFakeMediaStream()
	done := make(chan error, 1)
	go func() { done <- b.Relay(context.Background(), domain.CallID("CA1"), stream) }()
	go b.Shutdown()

	close(stream.inbound)
	// Whichever side wins the race, the relay must come back.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish")
	}

	require.Eventually(t, func() bool {
		for _, c := range rooms.Conns() {
			if c.disconnects.Load() != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "every opened connection released exactly once")
	assert.Equal(t, 0, registry.Count())
}
