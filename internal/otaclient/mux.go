package otaclient

import (
	"sync"

	"github.com/tinygo-org/bleota/internal/gatt"
)

// which names the four subscribed characteristics for logging and for
// SubscriptionError.Which.
const (
	whichWrite    = "recv-fw"
	whichNotify   = "progress"
	whichCommand  = "command"
	whichCustomer = "customer"
)

// notificationMux fans the four GATT subscriptions named in spec §6 into
// the typed events SessionController consumes: start ack, progress, and
// subscription errors. Write-echo and customer notifications carry no
// payload the controller acts on; per the open question in spec §9 the
// mux tolerates either characteristic never notifying at all.
type notificationMux struct {
	profile gatt.Profile

	startAck chan error
	progress *progressTracker

	mu           sync.Mutex
	startAckOnce bool
	cleanup      bool
}

func newNotificationMux(profile gatt.Profile, progress *progressTracker) *notificationMux {
	return &notificationMux{
		profile:  profile,
		startAck: make(chan error, 1),
		progress: progress,
	}
}

// failErr delivers a terminal error to whichever of the two waitable sinks
// is still pending: the start ack if it hasn't resolved yet, and always
// the progress tracker (rejectAll is idempotent, so this is safe to call
// from more than one failure path, e.g. a disconnect racing a subscription
// error).
func (m *notificationMux) failErr(err *Error) {
	m.mu.Lock()
	if m.cleanup {
		m.mu.Unlock()
		return
	}
	send := !m.startAckOnce
	m.startAckOnce = true
	m.mu.Unlock()

	if send {
		select {
		case m.startAck <- err:
		default:
		}
	}
	m.progress.rejectAll(err)
}

// subscribe installs the four notification callbacks. It mirrors
// dfuclient's EnableNotifications call pattern, one per characteristic.
func (m *notificationMux) subscribe() error {
	type sub struct {
		which string
		char  gatt.Characteristic
		fn    func([]byte)
	}
	subs := []sub{
		{whichCommand, m.profile.Command, m.onCommand},
		{whichNotify, m.profile.Notify, m.onProgress},
		{whichWrite, m.profile.Write, m.onWriteEcho},
		{whichCustomer, m.profile.Customer, m.onCustomerEcho},
	}
	for _, s := range subs {
		which := s.which
		if err := s.char.EnableNotifications(s.fn); err != nil {
			return newSubscriptionError(which, err)
		}
	}
	return nil
}

// unsubscribe removes all four notification callbacks. Errors raised while
// tearing down are dropped per spec §4.3, matching teardown's "errors
// during teardown are dropped" rule.
func (m *notificationMux) unsubscribe() {
	m.mu.Lock()
	m.cleanup = true
	m.mu.Unlock()
	for _, c := range []gatt.Characteristic{m.profile.Command, m.profile.Notify, m.profile.Write, m.profile.Customer} {
		if c == nil {
			continue
		}
		_ = c.EnableNotifications(nil)
	}
}

func (m *notificationMux) onCommand(value []byte) {
	m.mu.Lock()
	if m.cleanup || m.startAckOnce {
		m.mu.Unlock()
		return
	}
	m.startAckOnce = true
	m.mu.Unlock()

	select {
	case m.startAck <- nil:
	default:
	}
}

func (m *notificationMux) onProgress(value []byte) {
	if len(value) == 0 {
		return
	}
	m.progress.update(value[0])
}

func (m *notificationMux) onWriteEcho(value []byte) {
	// No payload the controller acts on; subscribed only to surface
	// subscription-layer errors (spec §9 open question).
}

func (m *notificationMux) onCustomerEcho(value []byte) {
	// Reserved channel, subscribed for error-only monitoring.
}
