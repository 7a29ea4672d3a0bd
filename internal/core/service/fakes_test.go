package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// fakeRoomService implements port.RoomService in memory.
type fakeRoomService struct {
	mu           sync.Mutex
	createdRooms []string
	tokens       []mintedToken

	createErr  error
	connectErr error

	conn *fakeRoomConnection

	// freshConns mints a new connection per Connect call instead of
	// handing out the shared one, and records each in conns.
	freshConns bool
	conns      []*fakeRoomConnection
}

type mintedToken struct {
	identity string
	room     string
}

func newFakeRoomService() *fakeRoomService {
	return &fakeRoomService{conn: newFakeRoomConnection()}
}

func (f *fakeRoomService) CreateRoom(ctx context.Context, name string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.createdRooms = append(f.createdRooms, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeRoomService) MintAccessToken(identity, room string) (string, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, mintedToken{identity: identity, room: room})
	f.mu.Unlock()
	return "jwt-" + identity, nil
}

func (f *fakeRoomService) Connect(ctx context.Context, token string) (port.RoomConnection, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	if f.freshConns {
		c := newFakeRoomConnection()
		f.mu.Lock()
		f.conns = append(f.conns, c)
		f.mu.Unlock()
		return c, nil
	}
	return f.conn, nil
}

func (f *fakeRoomService) Conns() []*fakeRoomConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeRoomConnection(nil), f.conns...)
}

func (f *fakeRoomService) URL() string {
	return "wss://livekit.example.com"
}

// fakeRoomConnection implements port.RoomConnection.
type fakeRoomConnection struct {
	sink *fakeFrameSink

	mu      sync.Mutex
	onFrame func(domain.AudioFrame)

	disconnects atomic.Int32
	publishErr  error
}

func newFakeRoomConnection() *fakeRoomConnection {
	return &fakeRoomConnection{sink: &fakeFrameSink{}}
}

func (c *fakeRoomConnection) PublishAudioTrack(sampleRate, channels int) (port.FrameSink, error) {
	if c.publishErr != nil {
		return nil, c.publishErr
	}
	return c.sink, nil
}

func (c *fakeRoomConnection) SubscribeAudio(fn func(domain.AudioFrame)) (func(), error) {
	c.mu.Lock()
	c.onFrame = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.onFrame = nil
		c.mu.Unlock()
	}, nil
}

func (c *fakeRoomConnection) Disconnect() {
	c.disconnects.Add(1)
}

// deliver pushes a frame through the registered subscription, as the
// provider's dispatch loop would.
func (c *fakeRoomConnection) deliver(frame domain.AudioFrame) {
	c.mu.Lock()
	fn := c.onFrame
	c.mu.Unlock()
	if fn != nil {
		fn(frame)
	}
}

// fakeFrameSink records frames written toward the room.
type fakeFrameSink struct {
	mu       sync.Mutex
	frames   []domain.AudioFrame
	closed   bool
	writeErr error
}

func (s *fakeFrameSink) WriteFrame(frame domain.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.closed {
		return errors.New("sink closed")
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeFrameSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeFrameSink) Frames() []domain.AudioFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AudioFrame(nil), s.frames...)
}

// fakeMediaStream implements port.MediaStream over channels.
type fakeMediaStream struct {
	inbound chan []byte

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakeMediaStream() *fakeMediaStream {
	return &fakeMediaStream{inbound: make(chan []byte, 16)}
}

func (s *fakeMediaStream) ReadMessage() ([]byte, error) {
	data, ok := <-s.inbound
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (s *fakeMediaStream) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, append([]byte(nil), data...))
	return nil
}

func (s *fakeMediaStream) Close() error {
	return nil
}

func (s *fakeMediaStream) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}
