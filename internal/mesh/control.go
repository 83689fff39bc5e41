package mesh

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// controlChannelLabel names the per-peer data channel carrying mesh
// control traffic. It carries no media and never triggers renegotiation.
const controlChannelLabel = "engage-control"

// control message kinds.
const controlTypeMediaState = "media-state"

// controlMessage is the msgpack frame exchanged on the control channel.
type controlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// mediaStatePayload carries the sender's microphone and camera flags.
type mediaStatePayload struct {
	Audio bool `msgpack:"audio"`
	Video bool `msgpack:"video"`
}

// encodeMediaState builds a media-state control frame.
func encodeMediaState(audio, video bool) ([]byte, error) {
	payload, err := msgpack.Marshal(mediaStatePayload{Audio: audio, Video: video})
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(controlMessage{
		Type:    controlTypeMediaState,
		Payload: payload,
	})
}

// decodeControl parses a control frame.
func decodeControl(data []byte) (*controlMessage, error) {
	var msg controlMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse control message: %w", err)
	}
	return &msg, nil
}

// decodeMediaState parses a media-state payload.
func decodeMediaState(msg *controlMessage) (*mediaStatePayload, error) {
	var state mediaStatePayload
	if err := msgpack.Unmarshal(msg.Payload, &state); err != nil {
		return nil, fmt.Errorf("failed to parse media state: %w", err)
	}
	return &state, nil
}
