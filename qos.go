package mqttsub

import (
	"fmt"
	"strings"
)

// QOSLevel is an agreement between the sender of a message and the receiver of a message
// that defines the guarantee of delivery for a specific message
type QOSLevel uint8

const (
	// QOSZero denotes at most once message delivery
	QOSZero QOSLevel = 0
	// QOSOne denotes at least once message delivery
	QOSOne QOSLevel = 1
	// QOSTwo denotes exactly once message delivery
	QOSTwo QOSLevel = 2
)

func (q QOSLevel) String() string {
	switch q {
	case QOSZero:
		return "AtMostOnce"
	case QOSOne:
		return "AtLeastOnce"
	case QOSTwo:
		return "ExactlyOnce"
	default:
		return fmt.Sprintf("QOSLevel(%d)", uint8(q))
	}
}

// ParseQOS maps a configured integer to a QOSLevel.
func ParseQOS(v int) (QOSLevel, error) {
	switch v {
	case 0, 1, 2:
		return QOSLevel(v), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidQOS, v)
	}
}

// PaddingPolicy decides how a qos list shorter than the topic list is stretched.
type PaddingPolicy string

const (
	// PadReplicate applies the first configured value to every topic.
	PadReplicate PaddingPolicy = "replicate"
	// PadDefault keeps the configured values for the leading topics and
	// uses QOSZero for the rest.
	PadDefault PaddingPolicy = "default"
)

// ParsePaddingPolicy accepts an empty string as PadReplicate.
func ParsePaddingPolicy(s string) (PaddingPolicy, error) {
	switch p := PaddingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PadReplicate:
		return PadReplicate, nil
	case PadDefault:
		return PadDefault, nil
	default:
		return "", fmt.Errorf("%w: unknown qos_padding %q", ErrInvalidConfig, s)
	}
}

// NormalizeQOS returns exactly one QOSLevel per topic.
//
// When there are at least as many qos values as topics, the first len(topics) values
// are used. An empty qos list defaults every topic to QOSZero. A non-empty list that is
// shorter than the topic list is stretched according to policy. Every value that is
// consulted must be 0, 1 or 2.
func NormalizeQOS(topics []string, qos []int, policy PaddingPolicy) ([]QOSLevel, error) {
	t, q := len(topics), len(qos)

	switch {
	case t == 0:
		return []QOSLevel{}, nil
	case q == 0:
		return make([]QOSLevel, t), nil
	case q >= t:
		return parseAll(qos[:t])
	case policy == PadDefault:
		levels, err := parseAll(qos)
		if err != nil {
			return nil, err
		}

		return append(levels, make([]QOSLevel, t-q)...), nil
	default:
		first, err := ParseQOS(qos[0])
		if err != nil {
			return nil, err
		}

		levels := make([]QOSLevel, t)
		for i := range levels {
			levels[i] = first
		}

		return levels, nil
	}
}

func parseAll(qos []int) ([]QOSLevel, error) {
	levels := make([]QOSLevel, 0, len(qos))

	for _, v := range qos {
		l, err := ParseQOS(v)
		if err != nil {
			return nil, err
		}

		levels = append(levels, l)
	}

	return levels, nil
}
