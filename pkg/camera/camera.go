// pkg/camera/camera.go
package camera

import (
	"encoding/base64"
	"time"
)

// Status is the lifecycle state of a camera connection.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected // terminal
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Activity is what the camera has been asked to do.
type Activity int

const (
	ActivityIdle      Activity = iota
	ActivityStreaming          // continuous frames until stop_stream
	ActivityCapturing          // waiting for one still image
)

func (a Activity) String() string {
	switch a {
	case ActivityIdle:
		return "idle"
	case ActivityStreaming:
		return "streaming"
	case ActivityCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// DataURIPrefix is prepended to the base64 payload to make it displayable.
const DataURIPrefix = "data:image/jpeg;base64,"

// Frame is the most recently received image. Data is kept exactly as it
// arrived on the wire.
type Frame struct {
	Data       string
	Seq        uint64
	ReceivedAt time.Time
}

// DataURI returns the frame as a data: URI. The payload is not validated.
func (f Frame) DataURI() string {
	return DataURIPrefix + f.Data
}

// Decode returns the raw image bytes.
func (f Frame) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// FrameSource produces JPEG encoded frames.
type FrameSource interface {
	Frame() ([]byte, error)
}
