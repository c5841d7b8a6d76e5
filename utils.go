package mqttsub

import (
	"context"
	"time"
)

// ConnectionInformer reports whether a broker connection is open.
// Client and every Transport implement it.
type ConnectionInformer interface {
	IsConnected() bool
}

// WaitForConnection checks c every tick until it reports a connection or ctx is done.
// It returns true only when c.IsConnected returned true.
func WaitForConnection(ctx context.Context, c ConnectionInformer, tick time.Duration) bool {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if c.IsConnected() {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
