package mqttsub

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/gojek/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PahoTransportSuite struct {
	suite.Suite
	client *mockClient
}

func TestPahoTransportSuite(t *testing.T) {
	suite.Run(t, new(PahoTransportSuite))
}

func (s *PahoTransportSuite) SetupTest() {
	s.client = &mockClient{}
	newClientFunc.Store(func(*mqtt.ClientOptions) mqtt.Client { return s.client })
}

func (s *PahoTransportSuite) TearDownTest() {
	newClientFunc.Store(mqtt.NewClient)
	s.client.AssertExpectations(s.T())
}

func (s *PahoTransportSuite) newTransport() *PahoTransport {
	return NewPahoTransport(ConnectOptions{
		BrokerURL:         "tcp://127.0.0.1:1883",
		ClientID:          "mqttsub-test",
		ConnectTimeout:    20 * time.Millisecond,
		WriteTimeout:      20 * time.Millisecond,
		DisconnectQuiesce: 250 * time.Millisecond,
	}, nil)
}

func (s *PahoTransportSuite) TestConnect() {
	errConnect := errors.New("not authorized")

	tests := []struct {
		name    string
		token   func() mqtt.Token
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{
			name:  "Success",
			token: func() mqtt.Token { return doneToken(nil) },
		},
		{
			name:    "Error",
			token:   func() mqtt.Token { return doneToken(errConnect) },
			wantErr: errConnect,
		},
		{
			name:    "Timeout",
			token:   func() mqtt.Token { return pendingToken() },
			wantErr: ErrConnectTimeout,
		},
		{
			name:  "Cancelled",
			token: func() mqtt.Token { return pendingToken() },
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.client.On("Connect").Return(tt.token()).Once()

			ctx, cancel := context.Background(), context.CancelFunc(func() {})
			if tt.ctx != nil {
				ctx, cancel = tt.ctx()
			}
			defer cancel()

			err := s.newTransport().Connect(ctx)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
			} else {
				s.NoError(err)
			}

			s.client.AssertExpectations(s.T())
		})
	}
}

func (s *PahoTransportSuite) TestSubscribe() {
	tr := s.newTransport()

	s.client.On("Subscribe", "t/1", byte(1), mock.AnythingOfType("mqtt.MessageHandler")).
		Return(doneToken(nil)).Once()
	s.client.On("Subscribe", "t/2", byte(2), mock.AnythingOfType("mqtt.MessageHandler")).
		Return(pendingToken()).Once()

	s.NoError(tr.Subscribe(context.Background(), "t/1", QOSOne))
	s.ErrorIs(tr.Subscribe(context.Background(), "t/2", QOSTwo), ErrSubscribeTimeout)
}

func (s *PahoTransportSuite) TestUnsubscribe() {
	tr := s.newTransport()

	s.client.On("Unsubscribe", []string{"a", "b"}).Return(doneToken(nil)).Once()
	s.client.On("Unsubscribe", []string{"c"}).Return(pendingToken()).Once()

	s.NoError(tr.Unsubscribe(context.Background(), "a", "b"))
	s.ErrorIs(tr.Unsubscribe(context.Background(), "c"), ErrUnsubscribeTimeout)
}

func (s *PahoTransportSuite) TestDisconnect() {
	s.Run("Open", func() {
		s.SetupTest()
		tr := s.newTransport()

		s.client.On("IsConnectionOpen").Return(true).Once()
		s.client.On("Disconnect", uint(250)).Return().Once()

		s.NoError(tr.Disconnect(context.Background()))

		ev, err := tr.Poll(context.Background())
		s.NoError(err)
		s.Equal(EventOutgoingDisconnect, ev.Kind)
	})

	s.Run("NotOpen", func() {
		s.SetupTest()
		tr := s.newTransport()

		s.client.On("IsConnectionOpen").Return(false).Once()

		s.ErrorIs(tr.Disconnect(context.Background()), ErrNotConnected)

		ev, err := tr.Poll(context.Background())
		s.NoError(err)
		s.Equal(EventOutgoingDisconnect, ev.Kind)
	})
}

func (s *PahoTransportSuite) TestConnect_AfterDisconnect() {
	tr := s.newTransport()

	s.client.On("IsConnectionOpen").Return(false).Once()

	s.ErrorIs(tr.Disconnect(context.Background()), ErrNotConnected)
	s.ErrorIs(tr.Connect(context.Background()), ErrTransportClosed)
	s.client.AssertNotCalled(s.T(), "Connect")
}

func (s *PahoTransportSuite) TestPoll_QueueNeverBlocksPaho() {
	tr := s.newTransport()

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < 100; i++ {
			tr.onMessage(nil, &mockMessage{topic: "a/b", id: uint16(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("message callback blocked without a Poll")
	}

	for i := 0; i < 100; i++ {
		ev, err := tr.Poll(context.Background())
		s.Require().NoError(err)
		s.Equal(i, ev.Message.ID)
	}

	s.client.On("IsConnectionOpen").Return(true).Once()
	s.client.On("Disconnect", uint(250)).Return().Once()

	tr.onMessage(nil, &mockMessage{topic: "a/b", id: 500})
	s.NoError(tr.Disconnect(context.Background()))
	tr.onMessage(nil, &mockMessage{topic: "a/b", id: 501})

	ev, err := tr.Poll(context.Background())
	s.NoError(err)
	s.Equal(500, ev.Message.ID)

	ev, err = tr.Poll(context.Background())
	s.NoError(err)
	s.Equal(EventOutgoingDisconnect, ev.Kind)
}

func (s *PahoTransportSuite) TestPoll() {
	tr := s.newTransport()

	tr.onMessage(nil, &mockMessage{
		topic:     "t/1",
		payload:   []byte("hello"),
		qos:       1,
		id:        42,
		duplicate: true,
	})

	ev, err := tr.Poll(context.Background())
	s.Require().NoError(err)
	s.Equal(EventMessage, ev.Kind)
	s.Equal(&Message{ID: 42, Topic: "t/1", Payload: []byte("hello"), QoS: QOSOne, Duplicate: true}, ev.Message)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = tr.Poll(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *PahoTransportSuite) TestCallbacks() {
	var opts *mqtt.ClientOptions

	newClientFunc.Store(func(o *mqtt.ClientOptions) mqtt.Client {
		opts = o

		return s.client
	})

	tr := s.newTransport()
	s.Require().NotNil(opts)

	opts.OnConnect(nil)

	ev, err := tr.Poll(context.Background())
	s.NoError(err)
	s.Equal(EventConnAck, ev.Kind)

	errEOF := errors.New("EOF")
	opts.OnConnectionLost(nil, errEOF)

	ev, err = tr.Poll(context.Background())
	s.NoError(err)
	s.Equal(EventConnectionLost, ev.Kind)
	s.Equal(errEOF, ev.Err)
}

func Test_toClientOptions(t *testing.T) {
	o := ConnectOptions{
		BrokerURL:      "ssl://broker.example.com:8883",
		ClientID:       "sensor",
		Username:       "user",
		Password:       "secret",
		CleanSession:   false,
		KeepAlive:      20 * time.Second,
		ConnectTimeout: 15 * time.Second,
		Will:           &WillConfig{Topic: "status/sensor", Payload: "offline", QOS: 1, Retained: true},
	}

	opts := toClientOptions(&PahoTransport{}, o)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "ssl", opts.Servers[0].Scheme)
	assert.Equal(t, "broker.example.com:8883", opts.Servers[0].Host)
	assert.Equal(t, "sensor", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.False(t, opts.CleanSession)
	assert.False(t, opts.AutoReconnect)
	assert.Equal(t, int64(20), opts.KeepAlive)
	assert.Equal(t, 15*time.Second, opts.ConnectTimeout)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "status/sensor", opts.WillTopic)
	assert.Equal(t, []byte("offline"), opts.WillPayload)
	assert.Equal(t, byte(1), opts.WillQos)
	assert.True(t, opts.WillRetained)

	anon := toClientOptions(&PahoTransport{}, ConnectOptions{BrokerURL: "tcp://localhost:1883"})
	assert.Empty(t, anon.Username)
	assert.False(t, anon.WillEnabled)
}

func TestConnectOptionsFromConfig(t *testing.T) {
	user, pass := "user", "secret"

	cfg := testConfig()
	cfg.Username, cfg.Password = &user, &pass
	cfg.Will = &WillConfig{Topic: "status"}

	o, err := ConnectOptionsFromConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", o.BrokerURL)
	assert.Equal(t, "mqttsub-test", o.ClientID)
	assert.Equal(t, "user", o.Username)
	assert.Equal(t, "secret", o.Password)
	assert.True(t, o.CleanSession)
	assert.Nil(t, o.TLSConfig)
	assert.Equal(t, cfg.Will, o.Will)
	assert.Equal(t, defaultWriteTimeout, o.WriteTimeout)

	cfg.Scheme = "ssl"
	cfg.CACertPath = "/does/not/exist.pem"

	_, err = ConnectOptionsFromConfig(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}

func TestNewPahoTransport_DebugLogging(t *testing.T) {
	defer func() {
		mqtt.ERROR, mqtt.CRITICAL, mqtt.WARN, mqtt.DEBUG = mqtt.NOOPLogger{}, mqtt.NOOPLogger{}, mqtt.NOOPLogger{}, mqtt.NOOPLogger{}
	}()

	cfg := testConfig()
	cfg.LogLevel = "DEBUG"

	o, err := ConnectOptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.True(t, o.DebugLogging)

	l := &mockLogger{}
	_ = NewPahoTransport(o, l)

	assert.Equal(t, &pahoLogger{logger: l, level: debugLevel}, mqtt.DEBUG)
	assert.Equal(t, &pahoLogger{logger: l, level: warnLevel}, mqtt.WARN)

	mqtt.DEBUG = mqtt.NOOPLogger{}
	cfg.LogLevel = "info"

	o, err = ConnectOptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.False(t, o.DebugLogging)

	_ = NewPahoTransport(o, l)
	assert.Equal(t, mqtt.NOOPLogger{}, mqtt.DEBUG)
}

func TestPahoTransport_Broker(t *testing.T) {
	server, url := startTestBroker(t)

	tr := NewPahoTransport(ConnectOptions{
		BrokerURL:      url,
		ClientID:       "mqttsub-transport",
		CleanSession:   true,
		KeepAlive:      20 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, tr.Connect(ctx))
	require.True(t, WaitForConnection(ctx, tr, 10*time.Millisecond))
	require.NoError(t, tr.Subscribe(ctx, "sensors/+/temp", QOSOne))

	require.NoError(t, server.Publish("sensors/kitchen/temp", []byte("21.5"), false, 1))

	var msg *Message

	for msg == nil {
		ev, err := tr.Poll(ctx)
		require.NoError(t, err)

		if ev.Kind == EventMessage {
			msg = ev.Message
		}
	}

	assert.Equal(t, "sensors/kitchen/temp", msg.Topic)
	assert.Equal(t, []byte("21.5"), msg.Payload)
	assert.Equal(t, QOSOne, msg.QoS)

	require.NoError(t, tr.Unsubscribe(ctx, "sensors/+/temp"))
	require.NoError(t, tr.Disconnect(ctx))
	assert.False(t, tr.IsConnected())

	ev, err := tr.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventOutgoingDisconnect, ev.Kind)
}

func doneToken(err error) mqtt.Token {
	ch := make(chan struct{})
	close(ch)

	t := &mockToken{}
	t.On("Done").Return((<-chan struct{})(ch))
	t.On("Error").Return(err)

	return t
}

func pendingToken() mqtt.Token {
	t := &mockToken{}
	t.On("Done").Return((<-chan struct{})(make(chan struct{})))

	return t
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockClient) IsConnectionOpen() bool {
	return m.Called().Bool(0)
}

func (m *mockClient) Connect() mqtt.Token {
	return m.Called().Get(0).(mqtt.Token)
}

func (m *mockClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return m.Called(topic, qos, retained, payload).Get(0).(mqtt.Token)
}

func (m *mockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return m.Called(topic, qos, callback).Get(0).(mqtt.Token)
}

func (m *mockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	return m.Called(filters, callback).Get(0).(mqtt.Token)
}

func (m *mockClient) Unsubscribe(topics ...string) mqtt.Token {
	return m.Called(topics).Get(0).(mqtt.Token)
}

func (m *mockClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	m.Called(topic, callback)
}

func (m *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

type mockToken struct {
	mock.Mock
}

func (m *mockToken) Wait() bool {
	return m.Called().Bool(0)
}

func (m *mockToken) WaitTimeout(duration time.Duration) bool {
	return m.Called(duration).Bool(0)
}

func (m *mockToken) Done() <-chan struct{} {
	return m.Called().Get(0).(<-chan struct{})
}

func (m *mockToken) Error() error {
	return m.Called().Error(0)
}

type mockMessage struct {
	topic     string
	payload   []byte
	qos       byte
	id        uint16
	duplicate bool
	retained  bool
}

func (m *mockMessage) Duplicate() bool   { return m.duplicate }
func (m *mockMessage) Qos() byte         { return m.qos }
func (m *mockMessage) Retained() bool    { return m.retained }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return m.id }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}
