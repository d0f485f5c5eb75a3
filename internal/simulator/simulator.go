// Package simulator provides an in-memory double for the device side of
// the BLE OTA protocol, so SessionController can be exercised end-to-end
// in tests without real radio hardware or flash. It is grounded on
// rcaelers-nrf-dfu's BleCentral abstraction, which the same upstream
// package fakes for its own tests; here the fake wraps the actual
// otaservice.Engine rather than re-implementing device behavior, so a
// simulator test exercises the same code a real peripheral runs.
package simulator

import (
	"sync"

	"github.com/tinygo-org/bleota/internal/gatt"
	"github.com/tinygo-org/bleota/internal/otaservice"
	"github.com/tinygo-org/bleota/internal/partition"
)

// fakeChar stands in for one GATT characteristic on both sides of the
// link: WriteWithResponse/EnableNotifications satisfy gatt.Characteristic
// for the client, and Write satisfies otaservice.Notifier for the device.
type fakeChar struct {
	name string

	mu       sync.Mutex
	notifyFn func([]byte)
	onWrite  func([]byte)

	// drop, if set, is consulted before a device->client notification is
	// delivered; returning true drops it. Used to simulate a device that
	// stops notifying (start-timeout, progress-stall scenarios).
	drop func(value []byte) bool
}

func (c *fakeChar) WriteWithResponse(data []byte) (int, error) {
	c.mu.Lock()
	fn := c.onWrite
	c.mu.Unlock()
	if fn != nil {
		fn(data)
	}
	return len(data), nil
}

func (c *fakeChar) EnableNotifications(callback func(value []byte)) error {
	c.mu.Lock()
	c.notifyFn = callback
	c.mu.Unlock()
	return nil
}

// Write is the device-side notify call (otaservice.Notifier).
func (c *fakeChar) Write(value []byte) (int, error) {
	c.mu.Lock()
	fn := c.notifyFn
	drop := c.drop
	c.mu.Unlock()
	if drop != nil && drop(value) {
		return len(value), nil
	}
	if fn != nil {
		fn(value)
	}
	return len(value), nil
}

// Device is a runnable in-memory stand-in for the embedded OTA receiver.
// It drives a real otaservice.Engine against fake characteristics exposed
// to the client as a gatt.Profile.
type Device struct {
	Table *partition.Table

	Profile gatt.Profile

	writeChar    *fakeChar
	progressChar *fakeChar
	commandChar  *fakeChar
	customerChar *fakeChar

	mu       sync.Mutex
	rebootFn func()
	rebooted bool

	disconnectMu sync.Mutex
	disconnectFn func()
}

// New returns a Device whose partition table has running booted in
// runningState (use partition.StateValid for an ordinary boot, or
// partition.StatePendingVerify to exercise rollback cancellation).
func New(running partition.Slot, runningState partition.ImageState) *Device {
	table := partition.NewTable(running, runningState)
	d := &Device{
		Table:        table,
		writeChar:    &fakeChar{name: "recv-fw"},
		progressChar: &fakeChar{name: "progress"},
		commandChar:  &fakeChar{name: "command"},
		customerChar: &fakeChar{name: "customer"},
	}

	engine := otaservice.New(table, d.commandChar, d.progressChar, d.onReboot, nil)
	d.writeChar.onWrite = engine.OnDataWrite
	d.commandChar.onWrite = engine.OnCommandWrite

	d.Profile = gatt.Profile{
		Write:    d.writeChar,
		Notify:   d.progressChar,
		Command:  d.commandChar,
		Customer: d.customerChar,
	}
	return d
}

// DropStartAck makes the device silently swallow the start ack it would
// otherwise notify back, simulating scenario 5 in spec §8.
func (d *Device) DropStartAck() {
	d.commandChar.mu.Lock()
	d.commandChar.drop = func(value []byte) bool { return true }
	d.commandChar.mu.Unlock()
}

// StallProgressAbove makes the device stop notifying progress once it
// would report more than percent, simulating scenario 6 in spec §8.
func (d *Device) StallProgressAbove(percent uint8) {
	d.progressChar.mu.Lock()
	d.progressChar.drop = func(value []byte) bool {
		return len(value) > 0 && value[0] > percent
	}
	d.progressChar.mu.Unlock()
}

// OnDisconnect implements gatt.DisconnectObserver.
func (d *Device) OnDisconnect(callback func()) {
	d.disconnectMu.Lock()
	d.disconnectFn = callback
	d.disconnectMu.Unlock()
}

// Disconnect simulates the link dropping.
func (d *Device) Disconnect() {
	d.disconnectMu.Lock()
	fn := d.disconnectFn
	d.disconnectMu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Device) onReboot() {
	d.mu.Lock()
	d.rebooted = true
	fn := d.rebootFn
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Rebooted reports whether the device has rebooted (end of a FlashWriter
// run, successful or not).
func (d *Device) Rebooted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rebooted
}

// OnReboot registers a callback invoked when the simulated device
// reboots, useful for tests waiting on the write-loop's terminal action.
func (d *Device) OnReboot(fn func()) {
	d.mu.Lock()
	d.rebootFn = fn
	d.mu.Unlock()
}
