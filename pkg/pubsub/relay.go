package pubsub

import (
	"context"
	"encoding/json"
)

// Relay carries hub messages between API instances.
type Relay interface {
	Name() string
	// Forward sends a locally published message to the other instances.
	Forward(ctx context.Context, msg Message) error
	// Run blocks and hands every received message to deliver until ctx ends.
	Run(ctx context.Context, deliver func(Message)) error
	Close() error
}

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func decode(payload []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(payload, &msg)
	return msg, err
}
