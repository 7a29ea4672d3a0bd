package domain

import (
	"github.com/google/uuid"
)

// CallID is the telephony provider's call identifier (Twilio CallSid).
// Opaque to us but unique per call, so it doubles as the registry key
// and the room-naming seed.
type CallID string

func (id CallID) String() string {
	return string(id)
}

// RoomName derives the media room name for this call.
func (id CallID) RoomName() string {
	return "twilio-call-" + string(id)
}

// Identity derives the room participant identity for the telephony leg.
func (id CallID) Identity() string {
	return "twilio-" + string(id)
}

// SessionID distinguishes session instances in logs. A provider may reuse
// a CallID across quick reconnects; this never collides.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func (s SessionID) String() string {
	return string(s)
}

// AccessInfo is everything the telephony leg needs to join the media room.
type AccessInfo struct {
	RoomName string
	Token    string
	URL      string
}
