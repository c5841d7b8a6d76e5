package mqttsub

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/gojek/paho.mqtt.golang"
)

const (
	defaultWriteTimeout      = 10 * time.Second
	defaultDisconnectQuiesce = 250 * time.Millisecond
	subscribeFailure         = 0x80
)

var newClientFunc = defaultNewClientFunc()

// ConnectOptions configures a PahoTransport.
type ConnectOptions struct {
	BrokerURL string
	ClientID  string

	Username, Password string

	CleanSession bool
	TLSConfig    *tls.Config
	Will         *WillConfig

	// DebugLogging bridges paho's debug logger as well, it is very chatty.
	DebugLogging bool

	KeepAlive, ConnectTimeout, WriteTimeout,
	DisconnectQuiesce time.Duration
}

// ConnectOptionsFromConfig assembles the connection options for cfg, loading TLS
// material when the scheme is encrypted. Certificate problems are returned before
// any network I/O happens.
func ConnectOptionsFromConfig(cfg *Config, logger Logger) (ConnectOptions, error) {
	tlsConfig, err := BuildTLSConfig(cfg, logger)
	if err != nil {
		return ConnectOptions{}, err
	}

	o := ConnectOptions{
		BrokerURL:         cfg.BrokerURL(),
		ClientID:          cfg.ClientID,
		CleanSession:      cfg.CleanSession == nil || *cfg.CleanSession,
		TLSConfig:         tlsConfig,
		Will:              cfg.Will,
		KeepAlive:         cfg.KeepAlive,
		ConnectTimeout:    cfg.ConnectTimeout,
		WriteTimeout:      defaultWriteTimeout,
		DisconnectQuiesce: defaultDisconnectQuiesce,
		DebugLogging:      strings.EqualFold(cfg.LogLevel, "debug"),
	}

	if username, password, ok := cfg.Credentials(); ok {
		o.Username, o.Password = username, password
	}

	return o, nil
}

// PahoTransport is a Transport backed by the paho MQTT v3 client. Paho callbacks are
// queued as events that Poll hands out in arrival order. The queue is unbounded and
// emit never blocks paho's router, so acks behind a burst of messages are still read.
type PahoTransport struct {
	client mqtt.Client
	opts   ConnectOptions
	logger Logger

	mu      sync.Mutex
	pending []Event
	ready   chan struct{}

	disconnected chan struct{}
	once         sync.Once
}

// NewPahoTransport creates a transport, no connection is attempted until Connect.
func NewPahoTransport(o ConnectOptions, logger Logger) *PahoTransport {
	if logger == nil {
		logger = defaultLogger
	} else {
		mqtt.ERROR = &pahoLogger{logger: logger, level: errorLevel}
		mqtt.CRITICAL = &pahoLogger{logger: logger, level: errorLevel}
		mqtt.WARN = &pahoLogger{logger: logger, level: warnLevel}

		if o.DebugLogging {
			mqtt.DEBUG = &pahoLogger{logger: logger, level: debugLevel}
		}
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = defaultWriteTimeout
	}

	t := &PahoTransport{
		opts:         o,
		logger:       logger,
		ready:        make(chan struct{}, 1),
		disconnected: make(chan struct{}),
	}

	t.client = newClientFunc.Load().(func(*mqtt.ClientOptions) mqtt.Client)(toClientOptions(t, o))

	return t
}

// Connect implements Transport. After Disconnect it returns ErrTransportClosed.
func (t *PahoTransport) Connect(ctx context.Context) error {
	if t.closed() {
		return ErrTransportClosed
	}

	tok := t.client.Connect()

	return waitForToken(ctx, tok, t.opts.ConnectTimeout, ErrConnectTimeout)
}

// Subscribe implements Transport.
func (t *PahoTransport) Subscribe(ctx context.Context, topic string, qos QOSLevel) error {
	tok := t.client.Subscribe(topic, byte(qos), t.onMessage)
	if err := waitForToken(ctx, tok, t.opts.WriteTimeout, ErrSubscribeTimeout); err != nil {
		return err
	}

	if st, ok := tok.(*mqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subscribeFailure {
			return fmt.Errorf("broker rejected subscription to '%s'", topic)
		}
	}

	return nil
}

// Unsubscribe implements Transport.
func (t *PahoTransport) Unsubscribe(ctx context.Context, topics ...string) error {
	return waitForToken(ctx, t.client.Unsubscribe(topics...), t.opts.WriteTimeout, ErrUnsubscribeTimeout)
}

// Disconnect implements Transport. A disconnected PahoTransport cannot be reused.
func (t *PahoTransport) Disconnect(_ context.Context) error {
	if !t.client.IsConnectionOpen() {
		t.markDisconnected()

		return ErrNotConnected
	}

	t.client.Disconnect(uint(t.opts.DisconnectQuiesce / time.Millisecond))
	t.markDisconnected()

	return nil
}

// IsConnected implements Transport.
func (t *PahoTransport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

// Poll implements Transport. Once Disconnect has been called and the queued events
// are drained, Poll keeps returning EventOutgoingDisconnect.
func (t *PahoTransport) Poll(ctx context.Context) (Event, error) {
	for {
		if ev, ok := t.next(); ok {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-t.ready:
		case <-t.disconnected:
			if ev, ok := t.next(); ok {
				return ev, nil
			}

			return Event{Kind: EventOutgoingDisconnect}, nil
		}
	}
}

func (t *PahoTransport) next() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		return Event{}, false
	}

	ev := t.pending[0]
	t.pending[0] = Event{}
	t.pending = t.pending[1:]

	return ev, true
}

func (t *PahoTransport) markDisconnected() {
	t.once.Do(func() { close(t.disconnected) })
}

func (t *PahoTransport) closed() bool {
	select {
	case <-t.disconnected:
		return true
	default:
		return false
	}
}

// emit never blocks, it runs on paho's router and connection goroutines.
func (t *PahoTransport) emit(ev Event) {
	if t.closed() {
		return
	}

	t.mu.Lock()
	t.pending = append(t.pending, ev)
	t.mu.Unlock()

	select {
	case t.ready <- struct{}{}:
	default:
	}
}

func (t *PahoTransport) onMessage(_ mqtt.Client, m mqtt.Message) {
	t.emit(Event{Kind: EventMessage, Message: &Message{
		ID:        int(m.MessageID()),
		Topic:     m.Topic(),
		Payload:   m.Payload(),
		QoS:       QOSLevel(m.Qos()),
		Duplicate: m.Duplicate(),
		Retained:  m.Retained(),
	}})
}

func toClientOptions(t *PahoTransport, o ConnectOptions) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(o.BrokerURL).
		SetClientID(o.ClientID).
		SetTLSConfig(o.TLSConfig).
		SetAutoReconnect(false).
		SetCleanSession(o.CleanSession).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.ConnectTimeout).
		SetOnConnectHandler(func(_ mqtt.Client) {
			t.emit(Event{Kind: EventConnAck})
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			t.emit(Event{Kind: EventConnectionLost, Err: err})
		})

	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	if w := o.Will; w != nil {
		opts.SetWill(w.Topic, w.Payload, byte(w.QOS), w.Retained)
	}

	return opts
}

func waitForToken(ctx context.Context, t mqtt.Token, timeout time.Duration, timeoutErr error) error {
	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return timeoutErr
	case <-t.Done():
		return t.Error()
	}
}

func defaultNewClientFunc() *atomic.Value {
	v := &atomic.Value{}
	v.Store(mqtt.NewClient)

	return v
}
