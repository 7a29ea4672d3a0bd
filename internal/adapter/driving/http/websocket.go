package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxlink/bridge/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Twilio's media stream client sends no browser Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsStream adapts a websocket connection to the core's MediaStream port.
type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *wsStream) WriteMessage(data []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// ServeMediaStream accepts the telephony provider's streaming connection
// for a call and hands it to the relay, blocking until the call ends.
func (h *Handler) ServeMediaStream(w http.ResponseWriter, r *http.Request) {
	callSID := chi.URLParam(r, "callSID")
	l := log.With().Str("call_sid", callSID).Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("Error while upgrading ws")
		return
	}
	defer conn.Close()

	l.Info().Msg("Media stream connected")

	err = h.Bridge.Relay(r.Context(), domain.CallID(callSID), &wsStream{conn: conn})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			l.Error().Msg("Media stream for unknown call")
			return
		}
		if errors.Is(err, domain.ErrStreamAttached) {
			l.Warn().Msg("Duplicate media stream for call, rejecting")
			return
		}
		l.Error().Err(err).Msg("Relay failed")
		return
	}

	l.Info().Msg("Media stream closed")
}
