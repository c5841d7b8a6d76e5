package mqttsub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidConfig is returned when the configuration cannot be read, parsed or validated.
	ErrInvalidConfig = errors.New("mqttsub: invalid configuration")
	// ErrInvalidQOS is returned for qos values other than 0, 1 or 2.
	ErrInvalidQOS = errors.New("mqttsub: invalid qos value (must be 0, 1 or 2)")
	// ErrInvalidCertificate is returned when TLS material cannot be read or parsed.
	ErrInvalidCertificate = errors.New("mqttsub: invalid certificate material")
	// ErrInitialConnect is returned when the first connection attempt fails.
	ErrInitialConnect = errors.New("mqttsub: unable to connect")
	// ErrSubscribe is returned when subscribing to a configured topic fails.
	ErrSubscribe = errors.New("mqttsub: subscribe failed")
	// ErrConnectionLost classifies transport errors that mean the connection is gone.
	ErrConnectionLost = errors.New("mqttsub: connection lost")
	// ErrReconnectExhausted is returned when every reconnect attempt failed.
	ErrReconnectExhausted = errors.New("mqttsub: unable to reconnect after several attempts")
	// ErrTooManyPollErrors is returned when the consecutive poll error bound is reached.
	ErrTooManyPollErrors = errors.New("mqttsub: too many consecutive poll errors")
	// ErrNotConnected is returned by transport operations that need an open connection.
	ErrNotConnected = errors.New("mqttsub: client not connected")
	// ErrTransportClosed is returned by Transport.Connect once Disconnect has been called.
	ErrTransportClosed = errors.New("mqttsub: transport closed")

	ErrConnectTimeout     = errors.New("client timed out while trying to connect to the broker")
	ErrSubscribeTimeout   = errors.New("subscribe timeout")
	ErrUnsubscribeTimeout = errors.New("unsubscribe timeout")
)

// Exit codes returned by ExitCode.
const (
	ExitOK                 = 0
	ExitFatal              = 1
	ExitReconnectExhausted = 2
)

// ExitCode maps an error returned by Client.Run, or by anything before it, to a
// process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrReconnectExhausted):
		return ExitReconnectExhausted
	default:
		return ExitFatal
	}
}

func accumulateErrors(prev error, curr error) error {
	var err *multierror.Error

	switch {
	case errors.As(prev, &err):
		err.ErrorFormat = singleLineFormatFunc

		return multierror.Append(err, curr).ErrorOrNil()
	default:
		return multierror.Append(&multierror.Error{ErrorFormat: singleLineFormatFunc}, prev, curr).ErrorOrNil()
	}
}

func singleLineFormatFunc(es []error) string {
	if len(es) == 1 {
		return fmt.Sprintf("1 error occurred: [%s]", es[0])
	}

	points := make([]string, len(es))
	for i, err := range es {
		points[i] = fmt.Sprintf("[%s]", err)
	}

	return fmt.Sprintf("%d errors occurred: %s", len(es), strings.Join(points, " | "))
}
