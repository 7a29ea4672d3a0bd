package port

// MediaStream is one telephony streaming connection: a persistent
// full-duplex channel delivering JSON-framed events.
type MediaStream interface {
	// ReadMessage blocks until the next inbound message arrives.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one outbound message.
	WriteMessage(data []byte) error
	Close() error
}
