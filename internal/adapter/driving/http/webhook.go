package http

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go/twiml"

	"github.com/voxlink/bridge/internal/core/domain"
)

// HandleVoiceWebhook answers Twilio's call-start webhook. It provisions
// the media room for the call and replies with TwiML instructing Twilio
// to open a media stream back to this server. On failure the caller
// hears a spoken apology instead of dead air.
func (h *Handler) HandleVoiceWebhook(w http.ResponseWriter, r *http.Request) {
	callSID := r.FormValue("CallSid")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	l := log.With().Str("call_sid", callSID).Logger()
	l.Info().Msg("Incoming call")

	_, err := h.Bridge.StartCall(r.Context(), domain.CallID(callSID))
	if err != nil {
		l.Error().Err(err).Msg("Failed to provision call")
		writeTwiML(w, []twiml.Element{
			&twiml.VoiceSay{Message: "Sorry, there was an error connecting your call."},
		})
		return
	}

	host := h.PublicHost
	if host == "" {
		host = r.Host
	}
	streamURL := fmt.Sprintf("wss://%s/twilio/media/%s", host, callSID)

	writeTwiML(w, []twiml.Element{
		&twiml.VoiceSay{Message: "Connecting you to our AI assistant. Please wait."},
		&twiml.VoiceStart{InnerElements: []twiml.Element{
			&twiml.VoiceStream{Url: streamURL, Track: "both_tracks"},
		}},
	})
}

func writeTwiML(w http.ResponseWriter, verbs []twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render TwiML")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(doc))
}
