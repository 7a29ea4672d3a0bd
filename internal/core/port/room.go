package port

import (
	"context"

	"github.com/voxlink/bridge/internal/core/domain"
)

// FrameSink accepts audio frames to inject into the media room.
type FrameSink interface {
	WriteFrame(frame domain.AudioFrame) error
	// Close stops the sink. Writes after Close return an error.
	Close() error
}

// RoomConnection is one established participant connection to a media
// room. Exclusively owned by a single call session.
type RoomConnection interface {
	// PublishAudioTrack registers a local audio source in the room and
	// returns the sink that feeds it.
	PublishAudioTrack(sampleRate, channels int) (FrameSink, error)

	// SubscribeAudio registers interest in audio published by other
	// participants. fn is invoked for each received frame, in arrival
	// order. The returned cancel function stops delivery.
	SubscribeAudio(fn func(domain.AudioFrame)) (cancel func(), err error)

	// Disconnect releases all local resources. Safe to call multiple
	// times and safe after a partially failed connect.
	Disconnect()
}

// RoomService is the media-room provider boundary: room creation,
// credential minting, and participant connections.
type RoomService interface {
	// CreateRoom creates the named room. Creating a room that already
	// exists is not an error.
	CreateRoom(ctx context.Context, name string) error

	// MintAccessToken signs a join credential scoped to one identity and
	// one room, with an expiry.
	MintAccessToken(identity, room string) (string, error)

	// Connect joins the room the token grants access to.
	Connect(ctx context.Context, token string) (RoomConnection, error)

	// URL returns the provider endpoint participants connect to.
	URL() string
}
