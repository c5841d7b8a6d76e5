package mqttsub

import "sync"

// State is the connectivity state of a Session.
type State int

const (
	// Disconnected is the initial state and the state after a connection loss.
	Disconnected State = iota
	// Connecting is held while a connect or reconnect attempt is in flight.
	Connecting
	// Connected means the broker acknowledged the connection.
	Connected
	// ShuttingDown is terminal.
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case ShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}

// Session is the mutable connection state owned by a Client. Only the Client's run
// loop writes to it, the mutex exists for Snapshot readers.
type Session struct {
	mu sync.RWMutex

	state             State
	subscriptions     map[string]QOSLevel
	reconnectAttempts int

	onStateChange func(State)
}

func newSession(onStateChange func(State)) *Session {
	return &Session{
		subscriptions: make(map[string]QOSLevel),
		onStateChange: onStateChange,
	}
}

// SessionSnapshot is a point in time copy of a Session.
type SessionSnapshot struct {
	State             string              `json:"state"`
	Subscriptions     map[string]QOSLevel `json:"subscriptions"`
	ReconnectAttempts int                 `json:"reconnect_attempts"`
}

// Snapshot copies the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make(map[string]QOSLevel, len(s.subscriptions))
	for topic, qos := range s.subscriptions {
		subs[topic] = qos
	}

	return SessionSnapshot{
		State:             s.state.String(),
		Subscriptions:     subs,
		ReconnectAttempts: s.reconnectAttempts,
	}
}

// State returns the current connectivity state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed && s.onStateChange != nil {
		s.onStateChange(state)
	}
}

// connected records an acknowledged connection and resets the attempt counter.
func (s *Session) connected() {
	s.mu.Lock()
	s.reconnectAttempts = 0
	s.mu.Unlock()

	s.setState(Connected)
}

// lost records a connection loss, the broker side subscriptions are gone with it
// unless the session is persistent, so the set is rebuilt on resubscription.
func (s *Session) lost() {
	s.mu.Lock()
	s.subscriptions = make(map[string]QOSLevel)
	s.mu.Unlock()

	s.setState(Disconnected)
}

// nextAttempt moves to Connecting and returns the 1-based attempt number.
func (s *Session) nextAttempt() int {
	s.mu.Lock()
	s.reconnectAttempts++
	n := s.reconnectAttempts
	s.mu.Unlock()

	s.setState(Connecting)

	return n
}

func (s *Session) subscribed(topic string, qos QOSLevel) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[topic] = qos

	return len(s.subscriptions)
}

// activeTopics returns the subscribed topics in the order they appear in topics.
func (s *Session) activeTopics(topics []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]string, 0, len(s.subscriptions))

	for _, topic := range topics {
		if _, ok := s.subscriptions[topic]; ok {
			active = append(active, topic)
		}
	}

	return active
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.subscriptions = make(map[string]QOSLevel)
	s.mu.Unlock()

	s.setState(ShuttingDown)
}
