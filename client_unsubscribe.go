package mqttsub

import "context"

// unsubscribeAll removes every subscription that is currently active.
func (c *Client) unsubscribeAll(ctx context.Context) error {
	topics := c.session.activeTopics(c.cfg.Topics)
	if len(topics) == 0 {
		return nil
	}

	return c.transport.Unsubscribe(ctx, topics...)
}
