package domain

import "time"

// AudioFrame is a fixed-duration slice of linear PCM16 samples. Frames are
// transient: they flow through the relay and are discarded after
// conversion/transmission, never persisted.
type AudioFrame struct {
	Data       []int16
	SampleRate int
	Channels   int
}

// Duration returns the play time of the frame.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	samplesPerChannel := len(f.Data) / f.Channels
	return time.Duration(samplesPerChannel) * time.Second / time.Duration(f.SampleRate)
}
