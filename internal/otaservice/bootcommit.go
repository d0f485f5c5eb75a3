package otaservice

import "github.com/tinygo-org/bleota/internal/partition"

// BootCommit implements spec §4.7: a boot loader that just switched
// partitions leaves the newly selected slot in PENDING_VERIFY. The first
// successful FlashWriter initialization after that boot commits the image
// by marking it VALID, cancelling the boot loader's rollback-on-reset for
// this slot. A boot that never reaches this point (crash before the BLE
// OTA helper starts) leaves the image pending, and the boot loader rolls
// back on the next reset.
type BootCommit struct {
	table *partition.Table
}

// NewBootCommit returns a BootCommit bound to table.
func NewBootCommit(table *partition.Table) *BootCommit {
	return &BootCommit{table: table}
}

// Commit cancels rollback for the running partition if it is still
// PENDING_VERIFY, and returns the resulting state. Calling Commit again
// once the slot is already VALID is a no-op, so it is safe to call on
// every FlashWriter initialization rather than only the first.
func (b *BootCommit) Commit() partition.ImageState {
	b.table.MarkAppValidCancelRollback()
	return b.table.GetStatePartition(b.table.GetRunningPartition())
}
