package mqttsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Format selects how NewPrinter renders messages.
type Format string

const (
	// FormatText renders "topic (QoS n): payload".
	FormatText Format = "text"
	// FormatJSON renders one JSON object per line.
	FormatJSON Format = "json"
)

// ParseFormat accepts an empty string as FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, s)
	}
}

type jsonMessage struct {
	Topic     string   `json:"topic"`
	QoS       QOSLevel `json:"qos"`
	Retained  bool     `json:"retained"`
	Duplicate bool     `json:"duplicate"`
	Payload   string   `json:"payload"`
}

// NewPrinter returns a MessageHandler that writes every message to w. The payload is
// written as received.
func NewPrinter(w io.Writer, f Format) MessageHandler {
	var mu sync.Mutex

	if f == FormatJSON {
		enc := json.NewEncoder(w)

		return func(_ context.Context, msg *Message) {
			mu.Lock()
			defer mu.Unlock()

			_ = enc.Encode(jsonMessage{
				Topic:     msg.Topic,
				QoS:       msg.QoS,
				Retained:  msg.Retained,
				Duplicate: msg.Duplicate,
				Payload:   string(msg.Payload),
			})
		}
	}

	return func(_ context.Context, msg *Message) {
		mu.Lock()
		defer mu.Unlock()

		_, _ = fmt.Fprintf(w, "%s (QoS %d): %s\n", msg.Topic, msg.QoS, msg.Payload)
	}
}
