package service

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/voxlink/bridge/internal/codec/g711"
	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// Relay lifecycle states. One relay per call: init until the provider's
// start signal arrives, streaming while both audio paths run, closing
// while teardown executes, closed terminal.
const (
	stateInit      = "init"
	stateStreaming = "streaming"
	stateClosing   = "closing"
	stateClosed    = "closed"
)

const (
	eventStart  = "start"
	eventStop   = "stop"
	eventFinish = "finish"
)

// telephonyRate is the fixed sample rate of provider audio (G.711, 8kHz).
const telephonyRate = 8000

// Relay drives the two concurrent audio paths of one call: inbound
// (telephony -> room) runs on the goroutine that calls Run, outbound
// (room -> telephony) runs on the subscription's delivery goroutine. The
// paths share only the lifecycle FSM; whichever observes a stop or a
// failure first wins the transition to closing and executes teardown,
// the loser's attempt is rejected by the FSM and becomes a no-op.
type Relay struct {
	session   *CallSession
	registry  *Registry
	lifecycle *fsm.FSM

	stream  port.MediaStream
	writeMu sync.Mutex

	log zerolog.Logger
}

func NewRelay(session *CallSession, registry *Registry) *Relay {
	return &Relay{
		session:  session,
		registry: registry,
		lifecycle: fsm.NewFSM(
			stateInit,
			fsm.Events{
				{Name: eventStart, Src: []string{stateInit}, Dst: stateStreaming},
				{Name: eventStop, Src: []string{stateInit, stateStreaming}, Dst: stateClosing},
				{Name: eventFinish, Src: []string{stateClosing}, Dst: stateClosed},
			}, nil,
		),
		log: session.Logger(),
	}
}

// Run attaches the relay to a streaming connection and pumps audio both
// ways until either side ends. The returned error reports setup failure
// only; streaming-phase failures are handled internally by teardown.
func (r *Relay) Run(ctx context.Context, stream port.MediaStream) error {
	r.stream = stream

	if err := r.session.Connect(ctx); err != nil {
		r.log.Error().Err(err).Msg("Room connect failed")
		r.shutdown("connect failed")
		return err
	}
	if err := r.session.Subscribe(r.forwardToTelephony); err != nil {
		r.log.Error().Err(err).Msg("Audio subscription failed")
		r.shutdown("subscribe failed")
		return err
	}

	for {
		data, err := stream.ReadMessage()
		if err != nil {
			// Peer closed or transport error: same teardown either way.
			r.shutdown("stream closed")
			return nil
		}
		if done := r.handleMessage(ctx, data); done {
			return nil
		}
	}
}

// handleMessage processes one inbound streaming message. Returns true
// once the relay has shut down and the read loop should exit.
func (r *Relay) handleMessage(ctx context.Context, data []byte) bool {
	ev, err := domain.ParseStreamEvent(data)
	if err != nil {
		// At-least-once delivery: one bad message never kills the call.
		r.log.Warn().Err(err).Msg("Skipping malformed stream message")
		messagesDropped.Inc()
		return false
	}

	switch ev.Kind {
	case domain.EventConnected:
		// Handshake, nothing to do.
		return false

	case domain.EventStart:
		r.session.SetStreamSID(ev.StreamSID)
		if err := r.lifecycle.Event(ctx, eventStart); err != nil {
			r.log.Warn().Err(err).Msg("Unexpected start event")
			return false
		}
		r.log.Info().Str("stream_sid", ev.StreamSID).Msg("Media stream started")
		return false

	case domain.EventMedia:
		if r.lifecycle.Current() != stateStreaming {
			return false
		}
		frame := domain.AudioFrame{
			Data:       g711.DecodeULaw(ev.Payload),
			SampleRate: telephonyRate,
			Channels:   1,
		}
		if err := r.session.Sink().WriteFrame(frame); err != nil {
			r.log.Error().Err(err).Msg("Frame sink write failed")
			r.shutdown("sink write failed")
			return true
		}
		framesInbound.Inc()
		return false

	case domain.EventStop:
		r.log.Info().Msg("Media stream stopped by provider")
		r.shutdown("stop event")
		return true
	}
	return false
}

// forwardToTelephony is the outbound path: invoked by the room
// subscription for each frame published by the agent. Frames arriving
// outside the streaming state are dropped.
func (r *Relay) forwardToTelephony(frame domain.AudioFrame) {
	if r.lifecycle.Current() != stateStreaming {
		return
	}

	msg, err := domain.MediaMessage(r.session.StreamSID(), g711.EncodeULaw(frame.Data))
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to build media message")
		return
	}

	r.writeMu.Lock()
	err = r.stream.WriteMessage(msg)
	r.writeMu.Unlock()
	if err != nil {
		r.log.Warn().Err(err).Msg("Stream write failed")
		r.shutdown("stream write failed")
		return
	}
	framesOutbound.Inc()
}

// shutdown executes the single-shot teardown: end the session, remove it
// from the registry, mark the relay closed. The FSM transition to
// closing is the concurrency guard: only the first caller passes, every
// later call (from the other path, or a repeat signal) is a no-op.
func (r *Relay) shutdown(reason string) {
	if err := r.lifecycle.Event(context.Background(), eventStop); err != nil {
		return // already closing or closed
	}
	r.log.Info().Str("reason", reason).Msg("Closing relay")

	r.session.End()
	r.registry.Remove(r.session.CallID())

	if err := r.lifecycle.Event(context.Background(), eventFinish); err != nil {
		r.log.Warn().Err(err).Msg("Lifecycle finish rejected")
	}
}

// State reports the current lifecycle state.
func (r *Relay) State() string {
	return r.lifecycle.Current()
}
