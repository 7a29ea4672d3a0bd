package livekit

import (
	"strings"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/voxlink/bridge/internal/codec/g711"
	"github.com/voxlink/bridge/internal/core/domain"
	"github.com/voxlink/bridge/internal/core/port"
)

// roomConnection implements port.RoomConnection over one lksdk.Room.
type roomConnection struct {
	room *lksdk.Room

	mu      sync.Mutex
	onFrame func(domain.AudioFrame)

	done      chan struct{}
	closeOnce sync.Once
}

func newRoomConnection() *roomConnection {
	return &roomConnection{
		done: make(chan struct{}),
	}
}

// PublishAudioTrack publishes a G.711 PCMU track for the telephony leg.
// The returned sink compresses PCM16 frames back to mu-law; PCMU is
// 8kHz native, so both legs of the bridge run at the telephony rate and
// no resampling happens anywhere.
func (rc *roomConnection) PublishAudioTrack(sampleRate, channels int) (port.FrameSink, error) {
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypePCMU,
		ClockRate: uint32(sampleRate),
		Channels:  uint16(channels),
	})
	if err != nil {
		return nil, &domain.ProviderError{Op: "create track", Err: err}
	}

	_, err = rc.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "twilio-audio",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return nil, &domain.ProviderError{Op: "publish track", Err: err}
	}

	return &trackSink{track: track}, nil
}

// SubscribeAudio registers the consumer for remote audio. The reader
// goroutines dispatch to whichever callback is current, so registering
// after connect loses nothing but the frames that arrived in between.
func (rc *roomConnection) SubscribeAudio(fn func(domain.AudioFrame)) (func(), error) {
	rc.mu.Lock()
	rc.onFrame = fn
	rc.mu.Unlock()

	cancel := func() {
		rc.mu.Lock()
		rc.onFrame = nil
		rc.mu.Unlock()
	}
	return cancel, nil
}

// Disconnect releases the connection. Safe to call repeatedly and after
// a partially failed connect.
func (rc *roomConnection) Disconnect() {
	rc.closeOnce.Do(func() {
		close(rc.done)
		if rc.room != nil {
			rc.room.Disconnect()
		}
	})
}

// onTrackSubscribed starts a reader for each remote audio track (the
// agent's voice). Invoked from the SDK's dispatch loop.
func (rc *roomConnection) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	codec := track.Codec()
	if !strings.EqualFold(codec.MimeType, webrtc.MimeTypePCMU) {
		// Agents must publish G.711 for the bridge to stay at 8kHz.
		log.Warn().
			Str("participant", rp.Identity()).
			Str("mime_type", codec.MimeType).
			Msg("Ignoring non-PCMU audio track")
		return
	}
	log.Info().Str("participant", rp.Identity()).Msg("Subscribed to remote audio track")
	go rc.readTrack(track)
}

// readTrack pumps RTP from one remote track into the registered
// callback. PCMU payloads are raw mu-law bytes; decode and hand over.
func (rc *roomConnection) readTrack(track *webrtc.TrackRemote) {
	rate := int(track.Codec().ClockRate)
	for {
		select {
		case <-rc.done:
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			// Track ended or connection closed.
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		rc.mu.Lock()
		fn := rc.onFrame
		rc.mu.Unlock()
		if fn == nil {
			continue
		}
		fn(domain.AudioFrame{
			Data:       g711.DecodeULaw(pkt.Payload),
			SampleRate: rate,
			Channels:   1,
		})
	}
}

// trackSink feeds PCM16 frames into the published PCMU track.
type trackSink struct {
	track *lksdk.LocalSampleTrack

	mu     sync.Mutex
	closed bool
}

func (s *trackSink) WriteFrame(frame domain.AudioFrame) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &domain.ProviderError{Op: "write frame", Err: errSinkClosed}
	}
	s.mu.Unlock()

	return s.track.WriteSample(media.Sample{
		Data:     g711.EncodeULaw(frame.Data),
		Duration: frame.Duration(),
	}, nil)
}

func (s *trackSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
