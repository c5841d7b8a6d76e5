package mqttsub

import (
	"context"
	"fmt"

	"github.com/gojekfarm/xtools/generic/slice"
)

// subscribeAll subscribes to every configured topic, recomputing the QoS levels from
// the configuration each time so that a resubscription is identical to the first one.
func (c *Client) subscribeAll(ctx context.Context) error {
	levels, err := c.cfg.NormalizedQOS()
	if err != nil {
		return err
	}

	for i, topic := range c.cfg.Topics {
		if err := c.transport.Subscribe(ctx, topic, levels[i]); err != nil {
			return fmt.Errorf("%w: topic '%s' (QoS %s): %w", ErrSubscribe, topic, levels[i], err)
		}

		n := c.session.subscribed(topic, levels[i])
		c.options.metrics.Subscriptions(n)

		c.options.logger.Info(ctx, "subscribed", map[string]any{
			"topic": topic,
			"qos":   levels[i].String(),
		})
	}

	c.options.logger.Debug(ctx, "subscriptions complete", map[string]any{
		"topics": c.cfg.Topics,
		"qos":    slice.Map(levels, func(q QOSLevel) int { return int(q) }),
	})

	return nil
}
