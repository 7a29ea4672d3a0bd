package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// pendingGrace is how long a provisioned session may wait for its
// streaming connection before the sweeper expires it. Twilio opens the
// stream within seconds of the webhook answering, so a session still
// unattached after this long is an abandoned call.
const pendingGrace = 2 * time.Minute

// sweepInterval is how often the sweeper scans for expired sessions.
const sweepInterval = 30 * time.Second

// BridgeService is the application face of the bridge: the webhook path
// calls StartCall, the streaming path calls Relay, shutdown drains what
// is left.
type BridgeService struct {
	rooms      port.RoomService
	registry   *Registry
	sampleRate int
	quit       chan struct{}
}

func NewBridgeService(rooms port.RoomService, registry *Registry, sampleRate int) *BridgeService {
	return &BridgeService{
		rooms:      rooms,
		registry:   registry,
		sampleRate: sampleRate,
		quit:       make(chan struct{}),
	}
}

// StartCall provisions a session for an incoming call: registers it,
// creates the media room, and mints the join credential. On provider
// failure the registry entry is rolled back so a retried webhook can
// succeed.
func (b *BridgeService) StartCall(ctx context.Context, callID domain.CallID) (domain.AccessInfo, error) {
	s := NewCallSession(callID, b.rooms, b.sampleRate)
	if err := b.registry.Create(s); err != nil {
		return domain.AccessInfo{}, err
	}

	info, err := s.Start(ctx)
	if err != nil {
		b.registry.Remove(callID)
		return domain.AccessInfo{}, err
	}
	return info, nil
}

// Relay attaches a streaming connection to its session and blocks until
// the call ends. A call accepts exactly one streaming connection: a
// second arrival is rejected here, before it can touch the session the
// live connection owns.
func (b *BridgeService) Relay(ctx context.Context, callID domain.CallID, stream port.MediaStream) error {
	s, err := b.registry.Get(callID)
	if err != nil {
		return err
	}
	if !s.TryAttach() {
		return &domain.ConnectionError{Err: domain.ErrStreamAttached}
	}
	return NewRelay(s, b.registry).Run(ctx, stream)
}

// Run periodically expires sessions whose streaming connection never
// arrived. Blocks until Stop is called.
func (b *BridgeService) Run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return
		case <-ticker.C:
			b.sweepPending()
		}
	}
}

// Stop terminates the Run loop.
func (b *BridgeService) Stop() {
	close(b.quit)
}

func (b *BridgeService) sweepPending() {
	for _, s := range b.registry.ExpirePending(pendingGrace) {
		log.Info().Str("call_sid", s.CallID().String()).Msg("Expiring session, streaming connection never arrived")
		s.End()
	}
}

// ActiveCalls reports the number of live sessions.
func (b *BridgeService) ActiveCalls() int {
	return b.registry.Count()
}

// RoomURL returns the media room provider endpoint.
func (b *BridgeService) RoomURL() string {
	return b.rooms.URL()
}

// Shutdown ends every remaining session. Used on process exit after the
// HTTP server has stopped accepting connections.
func (b *BridgeService) Shutdown() {
	for _, s := range b.registry.Drain() {
		log.Info().Str("call_sid", s.CallID().String()).Msg("Ending session on shutdown")
		s.End()
	}
}
