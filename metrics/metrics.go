package metrics

// Collector receives the events a subscriber client reports while it runs.
type Collector interface {
	// MessageReceived is called once for every message surfaced to the output.
	MessageReceived(qos uint8)

	// ReconnectAttempt is called after every reconnect attempt with its outcome.
	ReconnectAttempt(success bool)

	// PollError is called when waiting for the next transport event failed
	// for a reason other than connection loss.
	PollError()

	// ConnectionState is called on every session state transition.
	ConnectionState(state string)

	// Subscriptions reports the size of the active subscription set.
	Subscriptions(n int)
}

// NewNoop returns a Collector that discards everything.
func NewNoop() Collector { return noop{} }

type noop struct{}

func (noop) MessageReceived(uint8)  {}
func (noop) ReconnectAttempt(bool)  {}
func (noop) PollError()             {}
func (noop) ConnectionState(string) {}
func (noop) Subscriptions(int)      {}
