package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAudioFrameDuration(t *testing.T) {
	frame := AudioFrame{Data: make([]int16, 160), SampleRate: 8000, Channels: 1}
	assert.Equal(t, 20*time.Millisecond, frame.Duration())

	stereo := AudioFrame{Data: make([]int16, 320), SampleRate: 8000, Channels: 2}
	assert.Equal(t, 20*time.Millisecond, stereo.Duration())

	assert.Zero(t, AudioFrame{}.Duration())
}
