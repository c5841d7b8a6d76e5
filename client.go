package mqttsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errStopLoop = errors.New("stop event loop")

// Client drives a Transport through the subscriber lifecycle: connect, subscribe to
// every configured topic, hand incoming messages to the MessageHandler and reconnect
// a bounded number of times when an established connection is lost.
//
// A Client is meant to be Run once.
type Client struct {
	cfg       *Config
	transport Transport
	options   *clientOptions
	session   *Session

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewClient creates a Client for cfg. The QoS list is validated against the topics
// here so that configuration errors surface before any network I/O.
func NewClient(cfg *Config, transport Transport, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}

	if transport == nil {
		return nil, errors.New("mqttsub: transport cannot be nil")
	}

	if _, err := cfg.NormalizedQOS(); err != nil {
		return nil, err
	}

	co := defaultClientOptions(cfg)

	for _, opt := range opts {
		opt.apply(co)
	}

	c := &Client{
		cfg:       cfg,
		transport: transport,
		options:   co,
		stopped:   make(chan struct{}),
	}

	c.session = newSession(func(s State) { co.metrics.ConnectionState(s.String()) })

	return c, nil
}

// Session exposes the connection session for inspection.
func (c *Client) Session() *Session { return c.session }

// Run connects, subscribes and processes events until the context is cancelled, the
// transport reports a disconnect initiated by this client, or reconnection is
// exhausted. Whatever the reason, a still open connection is unsubscribed and closed
// before Run returns.
//
// Cancellation and an outgoing disconnect return nil. A failed first connection is not
// retried.
func (c *Client) Run(ctx context.Context) error {
	ctx = WithClientID(ctx, c.cfg.ClientID)

	c.session.setState(Connecting)

	if err := c.transport.Connect(ctx); err != nil {
		c.session.setState(Disconnected)

		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("%w to %s: %w", ErrInitialConnect, c.cfg.BrokerURL(), err)
	}

	c.session.connected()
	c.options.logger.Info(ctx, "connected", map[string]any{
		"broker":   c.cfg.BrokerURL(),
		"clientID": c.cfg.ClientID,
	})

	defer c.stop(ctx)

	if err := c.subscribeAll(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}

	c.options.logger.Info(ctx, "processing messages", nil)

	if err := c.loop(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, errStopLoop) {
		return err
	}

	return nil
}

// IsConnected reports whether the transport connection is open.
func (c *Client) IsConnected() bool { return c.transport.IsConnected() }

// Stop asks the transport to disconnect, Run returns once the disconnect is observed.
// A reconnect in progress gives up at its next wait or attempt.
func (c *Client) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopped) })

	return c.transport.Disconnect(ctx)
}

func (c *Client) loop(ctx context.Context) error {
	pollErrors := 0

	for {
		ev, err := c.transport.Poll(ctx)

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrConnectionLost):
			if err := c.reconnect(ctx, err); err != nil {
				return err
			}

			pollErrors = 0

			continue
		case err != nil:
			pollErrors++

			c.options.metrics.PollError()
			c.options.logger.Error(ctx, err, map[string]any{"consecutive": pollErrors})

			if c.options.maxPollErrors > 0 && pollErrors >= c.options.maxPollErrors {
				return fmt.Errorf("%w: %w", ErrTooManyPollErrors, err)
			}

			if err := c.pause(ctx, c.options.pollErrorDelay); err != nil {
				return err
			}

			continue
		}

		pollErrors = 0

		if err := c.handleEvent(ctx, ev); err != nil {
			return err
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventMessage:
		if ev.Message == nil {
			return nil
		}

		c.options.metrics.MessageReceived(uint8(ev.Message.QoS))
		c.options.messageHandler(ctx, ev.Message)
	case EventConnAck:
		c.session.connected()
	case EventConnectionLost:
		cause := ev.Err
		if cause == nil {
			cause = ErrConnectionLost
		}

		return c.reconnect(ctx, cause)
	case EventOutgoingDisconnect:
		c.options.logger.Info(ctx, "disconnected by client", nil)
		c.session.setState(Disconnected)

		return errStopLoop
	default:
		c.options.logger.Debug(ctx, "ignoring transport event", map[string]any{"kind": ev.Kind.String()})
	}

	return nil
}

// pause waits for d. It returns errStopLoop once Stop has been called.
func (c *Client) pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(max(d, 0))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return errStopLoop
	case <-t.C:
		return nil
	}
}
