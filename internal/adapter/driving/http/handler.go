package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxlink/bridge/internal/core/service"
)

type Handler struct {
	Bridge     *service.BridgeService
	PublicHost string
}

func NewHandler(bridge *service.BridgeService, publicHost string) *Handler {
	return &Handler{
		Bridge:     bridge,
		PublicHost: publicHost,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/twilio/voice", h.HandleVoiceWebhook)
	r.Get("/twilio/media/{callSID}", h.ServeMediaStream)
	r.Get("/health", h.HandleHealth)
	r.Get("/", h.HandleRoot)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":       "healthy",
		"active_calls": h.Bridge.ActiveCalls(),
		"livekit_url":  h.Bridge.RoomURL(),
		"service":      "twilio-livekit-bridge",
	})
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"service": "Twilio LiveKit Bridge",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"voice_webhook": "/twilio/voice",
			"media_stream":  "/twilio/media/{callSID}",
			"health":        "/health",
		},
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
