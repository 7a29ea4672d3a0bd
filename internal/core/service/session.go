package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// disconnectGrace bounds how long teardown waits for the provider's
// disconnect before abandoning it.
const disconnectGrace = 5 * time.Second

// CallSession owns one call's lifecycle: the room connection, the
// publish sink, and the subscription. The webhook path creates it, the
// relay goroutine adopts it via TryAttach and connects it, and teardown
// may arrive from any goroutine. The mutable fields are guarded by mu;
// End is additionally serialized by sync.Once.
type CallSession struct {
	callID     domain.CallID
	sessionID  domain.SessionID
	rooms      port.RoomService
	sampleRate int
	createdAt  time.Time
	token      string

	attached atomic.Bool

	mu          sync.Mutex
	streamSID   string
	conn        port.RoomConnection
	sink        port.FrameSink
	unsubscribe func()
	ended       bool

	end sync.Once
	log zerolog.Logger
}

func NewCallSession(callID domain.CallID, rooms port.RoomService, sampleRate int) *CallSession {
	sessionID := domain.NewSessionID()
	return &CallSession{
		callID:     callID,
		sessionID:  sessionID,
		rooms:      rooms,
		sampleRate: sampleRate,
		createdAt:  time.Now(),
		log: log.With().
			Str("call_sid", callID.String()).
			Str("session_id", sessionID.String()).
			Logger(),
	}
}

func (s *CallSession) CallID() domain.CallID  { return s.callID }
func (s *CallSession) RoomName() string       { return s.callID.RoomName() }
func (s *CallSession) CreatedAt() time.Time   { return s.createdAt }
func (s *CallSession) Logger() zerolog.Logger { return s.log }
func (s *CallSession) SampleRate() int        { return s.sampleRate }

func (s *CallSession) Sink() port.FrameSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// TryAttach claims the session for a single streaming connection.
// Returns false if one is already attached, or the session has been
// claimed for expiry. The claim is never released: a call gets exactly
// one streaming connection over its lifetime.
func (s *CallSession) TryAttach() bool {
	return s.attached.CompareAndSwap(false, true)
}

// Attached reports whether a streaming connection has claimed the session.
func (s *CallSession) Attached() bool {
	return s.attached.Load()
}

// Start provisions the room side of the call: creates the room and mints
// a join credential for the telephony leg. Called from the webhook path
// before the streaming connection opens.
func (s *CallSession) Start(ctx context.Context) (domain.AccessInfo, error) {
	if err := s.rooms.CreateRoom(ctx, s.RoomName()); err != nil {
		return domain.AccessInfo{}, err
	}
	s.log.Info().Str("room", s.RoomName()).Msg("Created room")

	token, err := s.rooms.MintAccessToken(s.callID.Identity(), s.RoomName())
	if err != nil {
		return domain.AccessInfo{}, err
	}
	s.token = token

	return domain.AccessInfo{
		RoomName: s.RoomName(),
		Token:    token,
		URL:      s.rooms.URL(),
	}, nil
}

// Connect joins the room and publishes the outbound audio track. Called
// from the relay once the streaming connection is attached. If teardown
// already ran, the fresh connection is released and ErrSessionEnded is
// returned so nothing leaks past End.
func (s *CallSession) Connect(ctx context.Context) error {
	conn, err := s.rooms.Connect(ctx, s.token)
	if err != nil {
		return err
	}

	sink, err := conn.PublishAudioTrack(s.sampleRate, 1)
	if err != nil {
		conn.Disconnect()
		return err
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		conn.Disconnect()
		return domain.ErrSessionEnded
	}
	s.conn = conn
	s.sink = sink
	s.mu.Unlock()

	s.log.Info().Str("room", s.RoomName()).Msg("Connected to room, audio track published")
	return nil
}

// Subscribe registers the outbound-path callback for audio published by
// the room's other participants.
func (s *CallSession) Subscribe(fn func(domain.AudioFrame)) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return domain.ErrSessionEnded
	}

	cancel, err := conn.SubscribeAudio(fn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.unsubscribe = cancel
	s.mu.Unlock()
	return nil
}

// SetStreamSID records the stream identifier learned from the start
// event. Read by the outbound path.
func (s *CallSession) SetStreamSID(sid string) {
	s.mu.Lock()
	s.streamSID = sid
	s.mu.Unlock()
}

func (s *CallSession) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamSID != "" {
		return s.streamSID
	}
	return s.callID.String()
}

// End tears the session down exactly once, in order: stop the
// subscription, stop accepting frames into the sink, then disconnect.
// Disconnect runs under a bounded grace period so a hung provider call
// cannot wedge the relay goroutine. Safe to call from any goroutine, any
// number of times.
func (s *CallSession) End() {
	s.end.Do(func() {
		s.mu.Lock()
		s.ended = true
		unsubscribe := s.unsubscribe
		sink := s.sink
		conn := s.conn
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if sink != nil {
			if err := sink.Close(); err != nil {
				s.log.Warn().Err(err).Msg("Error closing frame sink")
			}
		}
		if conn != nil {
			done := make(chan struct{})
			go func() {
				conn.Disconnect()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(disconnectGrace):
				s.log.Warn().Msg("Room disconnect timed out, abandoning")
			}
		}
		s.log.Info().Msg("Session ended")
	})
}
