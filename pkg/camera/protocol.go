package camera

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Command is an instruction sent from the client to the camera.
type Command string

const (
	CommandStream      Command = "stream"
	CommandStopStream  Command = "stop_stream"
	CommandCapture     Command = "capture"
	CommandStopCapture Command = "stop_capture"
)

// Commands lists every command the camera understands.
var Commands = []Command{CommandStream, CommandStopStream, CommandCapture, CommandStopCapture}

func (c Command) Valid() bool {
	for _, known := range Commands {
		if c == known {
			return true
		}
	}
	return false
}

// MessageType discriminates inbound messages.
type MessageType string

const (
	MessageImage  MessageType = "image"  // reply to capture
	MessageStream MessageType = "stream" // one frame of a stream
)

// ErrMalformedPayload is returned when a message is not a JSON object of the
// expected shape.
var ErrMalformedPayload = errors.New("malformed payload")

type CommandMessage struct {
	Command Command `json:"command"`
}

// InboundMessage is a server to client message. Data is nil when the field
// was absent.
type InboundMessage struct {
	Type MessageType `json:"type,omitempty"`
	Data *string     `json:"data,omitempty"`
}

func EncodeCommand(c Command) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown command %q", c)
	}
	return json.Marshal(CommandMessage{Command: c})
}

func DecodeCommand(raw []byte) (CommandMessage, error) {
	var msg CommandMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return CommandMessage{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return msg, nil
}

func DecodeInbound(raw []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return msg, nil
}

// EncodeInbound wraps a JPEG into a server to client message.
func EncodeInbound(t MessageType, jpeg []byte) ([]byte, error) {
	data := base64.StdEncoding.EncodeToString(jpeg)
	return json.Marshal(InboundMessage{Type: t, Data: &data})
}
