package otaservice

import (
	"time"

	"github.com/tinygo-org/bleota/internal/ota"
	"github.com/tinygo-org/bleota/internal/partition"
)

// Timeouts from spec §5's device-side table.
const (
	RingRecvTimeout  = 10 * time.Second
	SemaphoreTimeout = 10 * time.Second
	RebootDelay      = 2 * time.Second
	semaphoreMax     = 100
	semaphoreSeed    = 1
)

// FlashWriter consumes the ring buffer and writes the standby partition,
// per spec §4.6. It is spawned lazily by IngressPump on the first data
// packet and runs for exactly one OTA session.
type FlashWriter struct {
	table      *partition.Table
	bootCommit *BootCommit
	ring       *ring
	sem        *semaphore

	log        LogFunc
	onProgress func(percent uint8)
	reboot     func()

	// RecvTimeout and SemTimeout default to RingRecvTimeout and
	// SemaphoreTimeout; tests shrink them to exercise the abort paths
	// without waiting out the real device timeouts.
	RecvTimeout time.Duration
	SemTimeout  time.Duration
	// RebootDelay defaults to the package RebootDelay constant.
	RebootDelay time.Duration

	// FWLength is stashed from the start command before the writer runs
	// (spec §4.6 step 3). It is written once by the command characteristic
	// handler and read-only once FlashWriter starts, per spec §5.
	FWLength uint32
}

// NewFlashWriter returns a FlashWriter bound to table and ring. reboot is
// called after the spec-mandated 2s delay on every exit path.
func NewFlashWriter(table *partition.Table, ring *ring, onProgress func(percent uint8), reboot func(), log LogFunc) *FlashWriter {
	return &FlashWriter{
		table:       table,
		bootCommit:  NewBootCommit(table),
		ring:        ring,
		sem:         newSemaphore(semaphoreMax, semaphoreSeed),
		onProgress:  onProgress,
		reboot:      reboot,
		log:         log,
		RecvTimeout: RingRecvTimeout,
		SemTimeout:  SemaphoreTimeout,
		RebootDelay: RebootDelay,
	}
}

// Run executes the six-step lifecycle from spec §4.6. It is meant to run
// on its own task (priority 10, 8 KiB stack in the reference firmware);
// here that maps to being launched on its own goroutine by IngressPump.
func (w *FlashWriter) Run() {
	running := w.table.GetRunningPartition()
	w.bootCommit.Commit()
	if w.table.GetPartitionType(running) != partition.TypeApp {
		w.logf("ota: running partition is not app-type, aborting")
		w.rebootAfter()
		return
	}

	target := w.table.FindFirstStandby()

	if w.FWLength == 0 {
		w.logf("ota: zero fw_length, aborting")
		w.rebootAfter()
		return
	}

	handle, err := w.table.Begin(target, partition.UnknownSize)
	if err != nil {
		w.logf("ota: ota_begin failed: %v", err)
		w.rebootAfter()
		return
	}

	var bytesReceived uint32
	var sectorBuf []byte
	for {
		item, ok := w.ring.pop(w.RecvTimeout)
		if !ok {
			w.logf("ota: ring receive timed out, client has stopped sending")
			w.table.Abort(handle)
			w.rebootAfter()
			return
		}

		if !w.sem.take(w.SemTimeout) {
			w.logf("ota: semaphore take timed out")
			w.table.Abort(handle)
			w.rebootAfter()
			return
		}

		payload, trailerCRC, final, err := parseDataPacket(item)
		if err != nil {
			w.logf("ota: %v", err)
			w.sem.give()
			w.table.Abort(handle)
			w.rebootAfter()
			return
		}
		sectorBuf = append(sectorBuf, payload...)

		if final {
			if got := ota.CRC16(sectorBuf); got != trailerCRC {
				w.logf("ota: sector crc mismatch: got %#04x, want %#04x", got, trailerCRC)
				w.sem.give()
				w.table.Abort(handle)
				w.rebootAfter()
				return
			}
		}

		if err := w.table.Write(handle, payload); err != nil {
			w.logf("ota: ota_write failed: %v", err)
			w.sem.give()
			w.table.Abort(handle)
			w.rebootAfter()
			return
		}
		bytesReceived += uint32(len(payload))

		if final {
			sectorBuf = sectorBuf[:0]
		}

		percent := uint8((uint64(bytesReceived) * 100) / uint64(w.FWLength))
		if w.onProgress != nil {
			w.onProgress(percent)
		}

		done := bytesReceived >= w.FWLength
		w.sem.give()
		if done {
			break
		}
	}

	if err := w.table.End(handle); err != nil {
		w.logf("ota: ota_end failed: %v", err)
		w.table.Abort(handle)
		w.rebootAfter()
		return
	}

	w.table.SetBootPartition(target)
	w.rebootAfter()
}

func (w *FlashWriter) rebootAfter() {
	time.Sleep(w.RebootDelay)
	if w.reboot != nil {
		w.reboot()
	}
}

func (w *FlashWriter) logf(format string, args ...interface{}) {
	if w.log != nil {
		w.log(format, args...)
	}
}
