package otaservice

import (
	"sync"
	"testing"
	"time"

	"github.com/tinygo-org/bleota/internal/ota"
	"github.com/tinygo-org/bleota/internal/partition"
)

type recordingNotifier struct {
	mu     sync.Mutex
	values [][]byte
}

func (n *recordingNotifier) Write(value []byte) (int, error) {
	n.mu.Lock()
	n.values = append(n.values, append([]byte(nil), value...))
	n.mu.Unlock()
	return len(value), nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.values)
}

func TestEngineCommandWriteAcksAndStashesLength(t *testing.T) {
	table := partition.NewTable(partition.OTA0, partition.StateValid)
	command := &recordingNotifier{}
	progress := &recordingNotifier{}
	reboot := make(chan struct{}, 1)

	e := New(table, command, progress, func() { reboot <- struct{}{} }, nil)

	f := ota.NewFramer(492)
	start := f.StartCommand(4)
	e.OnCommandWrite(start)

	if got := command.count(); got != 1 {
		t.Fatalf("command notifications = %d, want 1", got)
	}
	if e.pendingFWLength != 4 {
		t.Fatalf("pendingFWLength = %d, want 4", e.pendingFWLength)
	}
}

func TestEngineDataWriteDrivesFullSession(t *testing.T) {
	table := partition.NewTable(partition.OTA0, partition.StateValid)
	command := &recordingNotifier{}
	progress := &recordingNotifier{}
	reboot := make(chan struct{}, 1)

	e := New(table, command, progress, func() { reboot <- struct{}{} }, nil)

	f := ota.NewFramer(492)
	e.OnCommandWrite(f.StartCommand(4))

	packets, err := f.Sector([]byte("abcd"), 0)
	if err != nil {
		t.Fatalf("failed to frame test sector: %v", err)
	}
	for _, pkt := range packets {
		e.OnDataWrite(pkt.Bytes)
	}

	select {
	case <-reboot:
	case <-time.After(11 * time.Second):
		t.Fatal("engine-driven flash writer never rebooted")
	}

	if got := table.Image(table.GetRunningPartition()); string(got) != "abcd" {
		t.Fatalf("final running image = %q, want \"abcd\"", got)
	}
	if got := progress.count(); got == 0 {
		t.Fatal("expected at least one progress notification")
	}
}
