package livekit

import "errors"

var errSinkClosed = errors.New("frame sink closed")
