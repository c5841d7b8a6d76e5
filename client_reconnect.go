package mqttsub

import (
	"context"
	"errors"
	"fmt"
)

// reconnect tries to reestablish a lost connection a fixed number of times with a fixed
// wait before each attempt, then subscribes again. A failed resubscription is fatal.
func (c *Client) reconnect(ctx context.Context, cause error) error {
	c.session.lost()
	c.options.metrics.Subscriptions(0)

	c.options.logger.Warn(ctx, "connection lost, waiting to retry connection", map[string]any{
		"error":    cause.Error(),
		"attempts": c.options.reconnectAttempts,
		"interval": c.options.reconnectInterval.String(),
	})

	for i := 0; i < c.options.reconnectAttempts; i++ {
		if err := c.pause(ctx, c.options.reconnectInterval); err != nil {
			return err
		}

		attempt := c.session.nextAttempt()

		if err := c.transport.Connect(ctx); err != nil {
			c.options.metrics.ReconnectAttempt(false)
			c.session.setState(Disconnected)

			if ctx.Err() != nil {
				return ctx.Err()
			}

			if errors.Is(err, ErrTransportClosed) {
				return errStopLoop
			}

			c.options.logger.Warn(ctx, "reconnect attempt failed", map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			})

			continue
		}

		c.options.metrics.ReconnectAttempt(true)
		c.session.connected()
		c.options.logger.Info(ctx, "successfully reconnected, resubscribing topics", map[string]any{
			"attempt": attempt,
		})

		return c.subscribeAll(ctx)
	}

	c.session.setState(ShuttingDown)

	return fmt.Errorf("%w: %d attempts", ErrReconnectExhausted, c.options.reconnectAttempts)
}
