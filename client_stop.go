package mqttsub

import (
	"context"

	"github.com/gojekfarm/xtools/generic/slice"
)

// stop is the best-effort cleanup run when the event loop ends. Errors are logged,
// never returned.
func (c *Client) stop(ctx context.Context) {
	defer c.session.shutdown()

	if !c.transport.IsConnected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.options.gracefulShutdownPeriod)
	defer cancel()

	c.options.logger.Info(ctx, "disconnecting", nil)

	errs := []error{c.unsubscribeAll(ctx), c.transport.Disconnect(ctx)}

	if err := slice.Reduce(errs, accumulateErrors); err != nil {
		c.options.logger.Error(ctx, err, map[string]any{"stage": "shutdown"})
	}

	c.options.metrics.Subscriptions(0)
}
