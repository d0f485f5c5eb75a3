// Package partition models the device-side two-slot A/B partition table
// from spec §3 and §6: OTA_0/OTA_1 app slots, the per-slot image state
// machine, the per-slot partition type, and the environment primitives
// (get_running_partition, ota_begin/write/end, set_boot_partition,
// mark_app_valid_cancel_rollback, get_state_partition) FlashWriter and
// BootCommit are built against.
//
// There is no real flash chip available in this retrieval context, so
// Table is backed by an in-memory byte buffer per slot in place of a real
// flash driver.
package partition

import (
	"sync"

	"github.com/pkg/errors"
)

// Slot identifies one of the two app partitions.
type Slot int

const (
	OTA0 Slot = iota
	OTA1
)

func (s Slot) String() string {
	if s == OTA0 {
		return "OTA_0"
	}
	return "OTA_1"
}

// PartitionType identifies the kind of image a slot holds. FlashWriter
// reads the running partition's type before touching flash and aborts if
// it is not TypeApp, mirroring the ESP-IDF OTA helper's
// esp_ota_get_running_partition/partition->type guard. Both OTA_0 and
// OTA_1 are always TypeApp in this model; there is no mechanism by which a
// Table slot could hold anything else, so the check can never actually
// trip here.
type PartitionType int

const (
	TypeApp PartitionType = iota
	TypeOther
)

func (t PartitionType) String() string {
	if t == TypeApp {
		return "APP"
	}
	return "OTHER"
}

// ImageState is the verification state of the image in a slot (spec §3).
type ImageState int

const (
	// StateNew means the slot has never been booted.
	StateNew ImageState = iota
	// StatePendingVerify means the slot was just booted for the first
	// time and the boot loader will roll back to the other slot on the
	// next reset unless it is marked StateValid first.
	StatePendingVerify
	// StateValid means the slot's image has been confirmed bootable.
	StateValid
	// StateInvalid means the slot's image failed verification.
	StateInvalid
	// StateAborted means a write to the slot was abandoned mid-transfer.
	StateAborted
)

func (s ImageState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StatePendingVerify:
		return "PENDING_VERIFY"
	case StateValid:
		return "VALID"
	case StateInvalid:
		return "INVALID"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Handle is an open write handle returned by Begin, mirroring the
// environment's out_handle primitive (spec §5).
type Handle struct {
	slot Slot
}

// UnknownSize is passed to Begin when the image length is not known ahead
// of the write loop, matching the environment's ota_begin(target,
// UNKNOWN_SIZE) call in spec §4.6 step 4.
const UnknownSize = -1

// Table is the two-slot OTA partition table. It implements the
// get_running_partition / partition_find_first / ota_begin/write/end /
// set_boot_partition / mark_app_valid_cancel_rollback /
// get_state_partition primitives spec §6 lists as device-host collaborators.
type Table struct {
	mu      sync.Mutex
	running Slot
	states  map[Slot]ImageState
	types   map[Slot]PartitionType
	data    map[Slot][]byte
	open    map[Slot]bool
}

// NewTable returns a Table with running booted from a fresh boot loader
// hand-off: runningState is the state the boot loader leaves the running
// slot in (StatePendingVerify immediately after a switch, StateValid on
// ordinary boots).
func NewTable(running Slot, runningState ImageState) *Table {
	standby := OTA1
	if running == OTA1 {
		standby = OTA0
	}
	return &Table{
		running: running,
		states: map[Slot]ImageState{
			running: runningState,
			standby: StateNew,
		},
		types: map[Slot]PartitionType{
			running: TypeApp,
			standby: TypeApp,
		},
		data: map[Slot][]byte{running: nil, standby: nil},
		open: map[Slot]bool{},
	}
}

// GetRunningPartition returns the slot currently selected for boot.
func (t *Table) GetRunningPartition() Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// FindFirstStandby returns the one non-running slot, mirroring
// partition_find_first's role of locating the OTA data partition to write.
func (t *Table) FindFirstStandby() Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running == OTA0 {
		return OTA1
	}
	return OTA0
}

// GetStatePartition returns the image state of slot.
func (t *Table) GetStatePartition(slot Slot) ImageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[slot]
}

// GetPartitionType returns the partition type of slot.
func (t *Table) GetPartitionType(slot Slot) PartitionType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.types[slot]
}

// MarkAppValidCancelRollback marks the running slot VALID if it is
// currently PENDING_VERIFY, cancelling the boot loader's rollback-on-reset
// for this boot. It is a no-op in any other state.
func (t *Table) MarkAppValidCancelRollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[t.running] == StatePendingVerify {
		t.states[t.running] = StateValid
	}
}

// Begin opens target for writing, returning a Handle. size is informational
// only; UnknownSize is the normal case for a streamed OTA transfer.
func (t *Table) Begin(target Slot, size int) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if target == t.running {
		return nil, errors.Errorf("refusing to write running partition %s", target)
	}
	t.open[target] = true
	t.data[target] = t.data[target][:0]
	t.states[target] = StateNew
	return &Handle{slot: target}, nil
}

// Write appends data to the handle's slot, standing in for ota_write.
func (t *Table) Write(h *Handle, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open[h.slot] {
		return errors.Errorf("partition %s is not open for writing", h.slot)
	}
	t.data[h.slot] = append(t.data[h.slot], data...)
	return nil
}

// End finalizes the write started by Begin, standing in for ota_end.
func (t *Table) End(h *Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open[h.slot] {
		return errors.Errorf("partition %s is not open for writing", h.slot)
	}
	delete(t.open, h.slot)
	return nil
}

// Abort marks the handle's slot ABORTED and closes it without committing,
// used on any FlashWriter failure path.
func (t *Table) Abort(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, h.slot)
	t.states[h.slot] = StateAborted
}

// SetBootPartition selects slot as the partition the boot loader will
// start on the next reboot. It must only be called after a successful End
// (spec §3 invariant).
func (t *Table) SetBootPartition(slot Slot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = slot
	t.states[slot] = StatePendingVerify
}

// Image returns the bytes written to slot so far. It exists for tests and
// for the in-memory simulator; a real flash driver would not expose this.
func (t *Table) Image(slot Slot) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.data[slot]...)
}
