package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EventKind enumerates the message kinds of the telephony streaming
// protocol (Twilio Media Streams).
type EventKind int

const (
	// EventConnected is the provider's handshake message, sent once when
	// the streaming connection opens. Carries no data.
	EventConnected EventKind = iota
	// EventStart announces the stream and carries its identifiers.
	EventStart
	// EventMedia carries one base64 mu-law audio payload.
	EventMedia
	// EventStop signals end of stream.
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventStart:
		return "start"
	case EventMedia:
		return "media"
	case EventStop:
		return "stop"
	}
	return "unknown"
}

// StreamEvent is an inbound streaming message, parsed once at the
// transport boundary into a tagged variant so the relay loop can switch
// on Kind exhaustively instead of poking at raw JSON.
type StreamEvent struct {
	Kind      EventKind
	StreamSID string // start events only
	CallSID   string // start events only
	Payload   []byte // media events only: decoded mu-law bytes
}

// Wire shapes of the streaming protocol. JSON text messages, one per
// websocket message.
type wireMessage struct {
	Event     string     `json:"event"`
	StreamSID string     `json:"streamSid,omitempty"`
	Start     *wireStart `json:"start,omitempty"`
	Media     *wireMedia `json:"media,omitempty"`
}

type wireStart struct {
	StreamSID string `json:"streamSid"`
	CallSID   string `json:"callSid"`
}

type wireMedia struct {
	Payload string `json:"payload"`
}

// ParseStreamEvent decodes one inbound streaming message. Any failure is
// reported as ErrMalformedEvent; callers are expected to log and skip.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return StreamEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch msg.Event {
	case "connected":
		return StreamEvent{Kind: EventConnected}, nil

	case "start":
		ev := StreamEvent{Kind: EventStart, StreamSID: msg.StreamSID}
		if msg.Start != nil {
			if msg.Start.StreamSID != "" {
				ev.StreamSID = msg.Start.StreamSID
			}
			ev.CallSID = msg.Start.CallSID
		}
		return ev, nil

	case "media":
		if msg.Media == nil || msg.Media.Payload == "" {
			return StreamEvent{}, fmt.Errorf("%w: media event without payload", ErrMalformedEvent)
		}
		raw, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			return StreamEvent{}, fmt.Errorf("%w: bad media payload: %v", ErrMalformedEvent, err)
		}
		return StreamEvent{Kind: EventMedia, Payload: raw}, nil

	case "stop":
		return StreamEvent{Kind: EventStop}, nil

	default:
		return StreamEvent{}, fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, msg.Event)
	}
}

// MediaMessage builds an outbound media envelope carrying mu-law audio,
// tagged with the stream identifier learned from the start event.
func MediaMessage(streamSID string, ulaw []byte) ([]byte, error) {
	return json.Marshal(wireMessage{
		Event:     "media",
		StreamSID: streamSID,
		Media:     &wireMedia{Payload: base64.StdEncoding.EncodeToString(ulaw)},
	})
}
