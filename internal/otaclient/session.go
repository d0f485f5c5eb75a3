// Package otaclient implements the client side of the BLE OTA firmware
// update protocol: SessionController, NotificationMux and ProgressTracker
// from spec §4.2–§4.4.
package otaclient

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tinygo-org/bleota/internal/gatt"
	"github.com/tinygo-org/bleota/internal/ota"
)

// State is one value of the client session state machine (spec §3):
// Idle → AwaitingStartAck → Streaming{sector,seq} → AwaitingFinalProgress →
// Done | Failed{reason}.
type State int

const (
	StateIdle State = iota
	StateAwaitingStartAck
	StateStreaming
	StateAwaitingFinalProgress
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingStartAck:
		return "AwaitingStartAck"
	case StateStreaming:
		return "Streaming"
	case StateAwaitingFinalProgress:
		return "AwaitingFinalProgress"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// SessionController owns the end-to-end OTA session lifecycle: framing,
// start handshake, sector streaming gated by device progress, and
// teardown. Only one session may run at a time per controller (spec §3);
// a controller is typically scoped to one connected device.
type SessionController struct {
	cfg    Config
	framer *ota.Framer

	mu   sync.Mutex
	busy bool

	state State
}

// New returns a SessionController configured with opts, layered over the
// package defaults the way go-cyacd's bootloader.New configures a
// Programmer.
func New(opts ...Option) *SessionController {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SessionController{
		cfg:    cfg,
		framer: ota.NewFramer(cfg.ChunkSize),
		state:  StateIdle,
	}
}

// RunOTA drives one complete transfer of image to the device behind
// profile, per spec §4.2. It blocks until the session completes, fails, or
// ctx is cancelled. Teardown always runs before RunOTA returns.
func (c *SessionController) RunOTA(ctx context.Context, profile gatt.Profile, observer gatt.DisconnectObserver, image []byte) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return newError(Busy, errors.New("a session is already in progress"))
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	if !profile.Complete() {
		c.setState(StateFailed)
		return newError(ProfileIncomplete, errors.New("one or more OTA characteristics were not resolved"))
	}

	progress := newProgressTracker()
	mux := newNotificationMux(profile, progress)

	if observer != nil {
		observer.OnDisconnect(func() {
			mux.failErr(newError(Disconnected, errors.New("link dropped mid-session")))
		})
	}

	cleanup := func() {
		mux.unsubscribe()
		progress.rejectAll(newError(Disconnected, errors.New("session torn down")))
	}
	defer cleanup()

	c.setState(StateIdle)
	if err := mux.subscribe(); err != nil {
		c.setState(StateFailed)
		return err
	}

	c.setState(StateAwaitingStartAck)
	length := uint32(len(image))
	start := c.framer.StartCommand(length)
	if _, err := profile.Command.WriteWithResponse(start); err != nil {
		c.setState(StateFailed)
		return newError(StartTimeout, errors.Wrap(err, "failed to write start command"))
	}

	if err := c.awaitStartAck(ctx, mux); err != nil {
		c.setState(StateFailed)
		return err
	}

	numSectors := c.framer.NumSectors(len(image))
	c.setState(StateStreaming)
	var emitted uint32
	for s := uint32(0); s < numSectors; s++ {
		packets, err := c.framer.Sector(image, s)
		if err != nil {
			c.setState(StateFailed)
			return newError(ProgressStall, errors.Wrap(err, "failed to frame sector"))
		}
		for _, pkt := range packets {
			if _, err := profile.Write.WriteWithResponse(pkt.Bytes); err != nil {
				c.setState(StateFailed)
				return newError(ProgressStall, errors.Wrap(err, "failed to write data packet"))
			}
			emitted += uint32(len(ota.Payload(pkt)))
		}

		expectedPct := uint8((uint64(emitted) * 100) / uint64(length))
		if err := c.waitProgress(ctx, progress, expectedPct, c.cfg.ProgressTimeout, ProgressStall); err != nil {
			c.setState(StateFailed)
			return err
		}
	}

	c.setState(StateAwaitingFinalProgress)
	if numSectors == 0 {
		// An empty image sends no data packets, so progress never
		// advances: the device starts its FlashWriter (which aborts on a
		// zero fw_length) only on the first data packet. The client
		// observes this as a stall, per scenario 1 in spec §8.
		if err := c.waitProgress(ctx, progress, 100, c.cfg.FinalProgressTimeout, ProgressStall); err != nil {
			c.setState(StateFailed)
			return err
		}
	} else if err := c.waitProgress(ctx, progress, 100, c.cfg.FinalProgressTimeout, FinalProgressTimeout); err != nil {
		c.setState(StateFailed)
		return err
	}

	c.setState(StateDone)
	return nil
}

func (c *SessionController) awaitStartAck(ctx context.Context, mux *notificationMux) error {
	timer := time.NewTimer(c.cfg.StartTimeout)
	defer timer.Stop()
	select {
	case err := <-mux.startAck:
		if err != nil {
			return err
		}
		return nil
	case <-timer.C:
		return newError(StartTimeout, errors.Errorf("no start ack within %s", c.cfg.StartTimeout))
	case <-ctx.Done():
		return newError(StartTimeout, ctx.Err())
	}
}

func (c *SessionController) waitProgress(ctx context.Context, progress *progressTracker, threshold uint8, timeout time.Duration, onTimeout Kind) error {
	done := progress.waitFor(threshold)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
		if c.cfg.OnProgress != nil {
			c.cfg.OnProgress(progress.value())
		}
		return nil
	case <-timer.C:
		return newError(onTimeout, errors.Errorf("progress stalled below %d%% after %s", threshold, timeout))
	case <-ctx.Done():
		return newError(onTimeout, ctx.Err())
	}
}

func (c *SessionController) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug("ota state", "state", s)
	}
}

// State returns the controller's current session state.
func (c *SessionController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
