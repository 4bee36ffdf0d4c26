// Package stream publishes diagram scenes to renderers outside the frame
// goroutine: in-process subscribers, nng pub/sub sockets and WebSocket
// clients. Every frame is encoded once as JSON and compressed with snappy;
// transports forward the same bytes.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/forcegraph/pkg/diagram"
)

// ErrClosed is returned when subscribing to a closed broker
var ErrClosed = errors.New("stream closed")

// Message is one published frame
type Message struct {
	Frame uint64
	Scene diagram.Scene
	JSON  []byte // uncompressed encoding
	Data  []byte // snappy block of JSON
}

// Encode builds the wire forms of a scene
func Encode(scene diagram.Scene) (Message, error) {
	raw, err := json.Marshal(scene)
	if err != nil {
		return Message{}, fmt.Errorf("encode scene: %w", err)
	}
	return Message{
		Frame: scene.Frame,
		Scene: scene,
		JSON:  raw,
		Data:  snappy.Encode(nil, raw),
	}, nil
}

// Decode reverses the Data form of Encode
func Decode(data []byte) (diagram.Scene, error) {
	var scene diagram.Scene
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return scene, fmt.Errorf("decompress scene: %w", err)
	}
	if err := json.Unmarshal(raw, &scene); err != nil {
		return scene, fmt.Errorf("decode scene: %w", err)
	}
	return scene, nil
}
