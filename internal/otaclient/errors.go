package otaclient

import "fmt"

// Kind identifies one of the terminal error categories a session can fail
// with, per spec §7.
type Kind int

const (
	// ProfileIncomplete means a required characteristic handle was not
	// resolved before the session started.
	ProfileIncomplete Kind = iota
	// StartTimeout means no start ack arrived within the start-ack
	// timeout.
	StartTimeout
	// ProgressStall means a per-sector progress wait timed out.
	ProgressStall
	// FinalProgressTimeout means the final wait for 100% timed out.
	FinalProgressTimeout
	// SubscriptionError means a GATT subscription raised an error.
	SubscriptionError
	// Disconnected means the link dropped mid-session.
	Disconnected
	// Busy means a session was already in progress on this controller.
	Busy
)

func (k Kind) String() string {
	switch k {
	case ProfileIncomplete:
		return "ProfileIncomplete"
	case StartTimeout:
		return "StartTimeout"
	case ProgressStall:
		return "ProgressStall"
	case FinalProgressTimeout:
		return "FinalProgressTimeout"
	case SubscriptionError:
		return "SubscriptionError"
	case Disconnected:
		return "Disconnected"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by a failed OTA session. All session
// errors are terminal; there is no automatic retry (spec §7).
type Error struct {
	Kind Kind
	// Which names the characteristic a SubscriptionError came from, or is
	// empty for other kinds.
	Which string
	Err   error
}

func (e *Error) Error() string {
	if e.Which != "" {
		return fmt.Sprintf("ota: %s (%s): %v", e.Kind, e.Which, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("ota: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ota: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	oe, ok := err.(*Error)
	return ok && oe.Kind == kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func newSubscriptionError(which string, err error) *Error {
	return &Error{Kind: SubscriptionError, Which: which, Err: err}
}
