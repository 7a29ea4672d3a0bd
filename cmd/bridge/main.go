package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	lkroom "github.com/voxlink/bridge/internal/adapter/driven/room/livekit"
	handler "github.com/voxlink/bridge/internal/adapter/driving/http"
	"github.com/voxlink/bridge/internal/config"
	"github.com/voxlink/bridge/internal/core/service"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	rooms := lkroom.NewClient(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	registry := service.NewRegistry()
	bridge := service.NewBridgeService(rooms, registry, cfg.SampleRate)
	go bridge.Run()

	h := handler.NewHandler(bridge, cfg.PublicHost)
	r := h.NewRouter()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		l.Info().Str("port", cfg.Port).Str("livekit_url", cfg.LiveKitURL).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	bridge.Stop()
	bridge.Shutdown()
	l.Info().Msg("Server exited")
}
