// Package livekit adapts the LiveKit cloud service to the core's
// RoomService port: room provisioning over the server API, token
// minting, and participant connections over the realtime SDK.
package livekit

import (
	"context"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// tokenTTL bounds how long a minted join credential stays valid. Long
// enough to cover any realistic call, short enough not to linger.
const tokenTTL = 4 * time.Hour

// roomEmptyTimeout lets the provider reap rooms whose participants are
// gone, so failed calls do not leak rooms.
const roomEmptyTimeout = 5 * time.Minute

type Client struct {
	url       string
	apiKey    string
	apiSecret string
	rooms     *lksdk.RoomServiceClient
}

func NewClient(url, apiKey, apiSecret string) *Client {
	return &Client{
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		rooms:     lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
	}
}

func (c *Client) URL() string {
	return c.url
}

// CreateRoom provisions the named room. LiveKit's CreateRoom returns the
// existing room when the name is taken, which matches the port contract.
func (c *Client) CreateRoom(ctx context.Context, name string) error {
	_, err := c.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         name,
		EmptyTimeout: uint32(roomEmptyTimeout / time.Second),
	})
	if err != nil {
		return &domain.ProviderError{Op: "create room", Err: err}
	}
	return nil
}

// MintAccessToken signs a join token scoped to one identity and one room.
func (c *Client) MintAccessToken(identity, room string) (string, error) {
	at := auth.NewAccessToken(c.apiKey, c.apiSecret)
	at.SetIdentity(identity).
		SetName(identity).
		SetVideoGrant(&auth.VideoGrant{
			RoomJoin: true,
			Room:     room,
		}).
		SetValidFor(tokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return "", &domain.ProviderError{Op: "mint token", Err: err}
	}
	return token, nil
}

// Connect joins the room the token grants. Track subscription callbacks
// are registered up front; frames are delivered to whichever consumer is
// registered via SubscribeAudio at the time they arrive.
func (c *Client) Connect(ctx context.Context, token string) (port.RoomConnection, error) {
	rc := newRoomConnection()

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: rc.onTrackSubscribed,
		},
		OnDisconnected: func() {
			log.Debug().Msg("LiveKit room connection dropped")
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(c.url, token, cb, lksdk.WithAutoSubscribe(true))
	if err != nil {
		return nil, &domain.ConnectionError{Err: err}
	}
	rc.room = room
	return rc, nil
}
