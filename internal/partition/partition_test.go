package partition

import "testing"

func TestRollbackCancellationOnPendingVerify(t *testing.T) {
	table := NewTable(OTA1, StatePendingVerify)

	table.MarkAppValidCancelRollback()

	if got := table.GetStatePartition(OTA1); got != StateValid {
		t.Fatalf("running partition state = %s, want VALID", got)
	}
}

func TestMarkValidNoOpWhenNotPending(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	table.MarkAppValidCancelRollback()
	if got := table.GetStatePartition(OTA0); got != StateValid {
		t.Fatalf("state = %s, want VALID", got)
	}
}

func TestStandbyIsTheOtherSlot(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	if got := table.FindFirstStandby(); got != OTA1 {
		t.Fatalf("standby = %s, want OTA_1", got)
	}
	table2 := NewTable(OTA1, StateValid)
	if got := table2.FindFirstStandby(); got != OTA0 {
		t.Fatalf("standby = %s, want OTA_0", got)
	}
}

func TestWriteRefusesRunningPartition(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	if _, err := table.Begin(OTA0, UnknownSize); err == nil {
		t.Fatal("expected error writing the running partition")
	}
}

func TestSetBootPartitionOnlyAfterEnd(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	target := table.FindFirstStandby()

	handle, err := table.Begin(target, UnknownSize)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("firmware-bytes")
	if err := table.Write(handle, payload); err != nil {
		t.Fatal(err)
	}
	if err := table.End(handle); err != nil {
		t.Fatal(err)
	}

	table.SetBootPartition(target)

	if got := table.GetRunningPartition(); got != target {
		t.Fatalf("running = %s, want %s", got, target)
	}
	if got := table.GetStatePartition(target); got != StatePendingVerify {
		t.Fatalf("new running state = %s, want PENDING_VERIFY", got)
	}
	if got := table.Image(target); string(got) != string(payload) {
		t.Fatalf("image = %q, want %q", got, payload)
	}
}

func TestBothSlotsAreAppType(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	if got := table.GetPartitionType(OTA0); got != TypeApp {
		t.Fatalf("running partition type = %s, want APP", got)
	}
	if got := table.GetPartitionType(OTA1); got != TypeApp {
		t.Fatalf("standby partition type = %s, want APP", got)
	}
}

func TestAbortMarksAborted(t *testing.T) {
	table := NewTable(OTA0, StateValid)
	target := table.FindFirstStandby()
	handle, err := table.Begin(target, UnknownSize)
	if err != nil {
		t.Fatal(err)
	}
	table.Abort(handle)
	if got := table.GetStatePartition(target); got != StateAborted {
		t.Fatalf("state = %s, want ABORTED", got)
	}
	if err := table.Write(handle, []byte("x")); err == nil {
		t.Fatal("expected write to aborted handle to fail")
	}
}
