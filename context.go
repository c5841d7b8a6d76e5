package mqttsub

import "context"

type clientIDKey struct{}

// WithClientID returns a copy of ctx carrying clientID.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the MQTT client ID of the Client whose Run produced ctx.
// Contexts handed to a MessageHandler and to the Logger carry it.
func ClientIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}

	return ""
}
