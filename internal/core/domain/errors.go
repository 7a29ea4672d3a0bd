package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSession is returned when a session already exists for a call.
	ErrDuplicateSession = errors.New("session already exists for call")

	// ErrSessionNotFound is returned when no session exists for a call.
	ErrSessionNotFound = errors.New("no session for call")

	// ErrMalformedEvent marks an inbound stream message that could not be
	// parsed. Always non-fatal: the relay logs and skips the message.
	ErrMalformedEvent = errors.New("malformed stream event")

	// ErrStreamAttached is returned when a second streaming connection
	// arrives for a call that already has one. The live connection keeps
	// its session; the late one is rejected.
	ErrStreamAttached = errors.New("streaming connection already attached to call")

	// ErrSessionEnded is returned when an operation races session teardown
	// and loses.
	ErrSessionEnded = errors.New("session already ended")
)

// ProviderError wraps a media-room provider API failure (room creation,
// token minting, connect, publish).
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("room provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ConnectionError wraps a streaming transport failure (closed connection,
// failed handshake).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
