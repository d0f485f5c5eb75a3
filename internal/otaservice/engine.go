// Package otaservice implements the device side of the BLE OTA firmware
// update protocol: IngressPump, FlashWriter and BootCommit from spec
// §4.5–§4.7. Engine is transport-agnostic; see peripheral.go for the
// bluetooth.Adapter wiring dfuservice.AddService established the pattern
// for, and the sibling internal/simulator package for an in-memory double
// used by client-side tests.
package otaservice

import (
	"encoding/binary"

	"github.com/tinygo-org/bleota/internal/ota"
	"github.com/tinygo-org/bleota/internal/partition"
)

// Notifier sends a GATT notification on one characteristic. A real
// *bluetooth.Characteristic already satisfies this with its Write method,
// the same one the NUS peripheral example uses to push notifications.
type Notifier interface {
	Write(value []byte) (int, error)
}

// Engine holds the device-side protocol state: the partition table, the
// ingress ring, and the fw_length stashed off the start command. It knows
// nothing about GATT transport; OnCommandWrite/OnDataWrite are meant to be
// called from a characteristic's WriteEvent callback.
type Engine struct {
	table  *partition.Table
	ring   *ring
	log    LogFunc
	reboot func()

	command  Notifier
	progress Notifier

	pump            *IngressPump
	pendingFWLength uint32
}

// New returns an Engine bound to table. reboot is invoked (after the
// spec-mandated delay) on every FlashWriter exit path; command and
// progress are the notifiers for the command and progress characteristics.
func New(table *partition.Table, command, progress Notifier, reboot func(), log LogFunc) *Engine {
	e := &Engine{
		table:    table,
		ring:     newRing(RingCapacity),
		command:  command,
		progress: progress,
		reboot:   reboot,
		log:      log,
	}
	e.pump = newIngressPump(e.ring, e.spawnWriter, log)
	return e
}

// OnCommandWrite handles a write to the command characteristic. The only
// defined command is the §4.1 start command: fw_length is parsed out and
// stashed for the FlashWriter IngressPump will spawn on the first data
// packet, then a start ack is notified back.
func (e *Engine) OnCommandWrite(value []byte) {
	if len(value) < ota.StartCommandLen {
		e.logf("ota: short command write (%d bytes), ignoring", len(value))
		return
	}
	length := binary.LittleEndian.Uint32(value[2:6])
	e.pendingFWLength = length
	e.logf("ota: start command received, length=%d", length)
	if _, err := e.command.Write([]byte{0x01}); err != nil {
		e.logf("ota: failed to send start ack: %v", err)
	}
}

// OnDataWrite handles a write to the recv-fw characteristic: spawning the
// FlashWriter lazily on the first call, then forwarding the payload to the
// ingress ring (spec §4.5).
func (e *Engine) OnDataWrite(value []byte) {
	e.pump.OnWrite(value)
}

func (e *Engine) spawnWriter() {
	writer := NewFlashWriter(e.table, e.ring, e.onProgress, e.reboot, e.log)
	writer.FWLength = e.pendingFWLength
	go writer.Run()
}

func (e *Engine) onProgress(percent uint8) {
	if _, err := e.progress.Write([]byte{percent}); err != nil {
		e.logf("ota: failed to send progress notification: %v", err)
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.log != nil {
		e.log(format, args...)
	}
}
