package mqttsub

import "context"

// Transport is the MQTT connection a Client drives. Implementations own the wire
// protocol, Client owns the lifecycle.
type Transport interface {
	// Connect opens a connection to the broker and blocks until it is acknowledged or fails.
	Connect(ctx context.Context) error
	// Subscribe subscribes to a single topic filter.
	Subscribe(ctx context.Context, topic string, qos QOSLevel) error
	// Unsubscribe removes subscriptions for the given topic filters.
	Unsubscribe(ctx context.Context, topics ...string) error
	// Disconnect gracefully closes the connection.
	Disconnect(ctx context.Context) error
	// IsConnected checks whether the connection is currently open.
	IsConnected() bool
	// Poll blocks until the next event is available. Errors that mean the connection
	// is gone wrap ErrConnectionLost, cancellation returns ctx.Err().
	Poll(ctx context.Context) (Event, error)
}

// MessageHandler receives every message surfaced by the event loop.
type MessageHandler func(ctx context.Context, msg *Message)
