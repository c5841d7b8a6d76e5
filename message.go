package mqttsub

// Message is an application message received on a subscribed topic.
type Message struct {
	ID        int
	Topic     string
	Payload   []byte
	QoS       QOSLevel
	Duplicate bool
	Retained  bool
}

// EventKind identifies what a transport Event carries.
type EventKind int

const (
	// EventMessage carries an incoming application message.
	EventMessage EventKind = iota + 1
	// EventConnAck reports that the broker acknowledged a connection.
	EventConnAck
	// EventConnectionLost reports an unintended loss of the connection.
	EventConnectionLost
	// EventOutgoingDisconnect reports that a disconnect initiated by this client completed.
	EventOutgoingDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventConnAck:
		return "connack"
	case EventConnectionLost:
		return "connection_lost"
	case EventOutgoingDisconnect:
		return "outgoing_disconnect"
	default:
		return "unknown"
	}
}

// Event is produced by Transport.Poll.
type Event struct {
	Kind EventKind
	// Message is set for EventMessage.
	Message *Message
	// Err is the cause of an EventConnectionLost, if known.
	Err error
}
