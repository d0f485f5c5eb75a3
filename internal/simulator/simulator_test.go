package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/tinygo-org/bleota/internal/otaclient"
	"github.com/tinygo-org/bleota/internal/partition"
)

func TestSingleSectorImageSucceeds(t *testing.T) {
	// spec §8 scenario 2: L = 100, one sector.
	dev := New(partition.OTA0, partition.StateValid)
	controller := otaclient.New(otaclient.WithChunkSize(492))

	image := make([]byte, 100)
	for i := range image {
		image[i] = byte(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controller.RunOTA(ctx, dev.Profile, dev, image); err != nil {
		t.Fatalf("RunOTA failed: %v", err)
	}
	if got := dev.Table.Image(partition.OTA1); string(got) != string(image) {
		t.Fatal("device did not receive the exact image bytes")
	}
	if got := dev.Table.GetRunningPartition(); got != partition.OTA1 {
		t.Fatalf("device did not switch boot partition: running = %s", got)
	}
}

func TestBoundaryAlignedTwoSectorImageSucceeds(t *testing.T) {
	// spec §8 scenario 3: L = 8192, two full sectors.
	dev := New(partition.OTA0, partition.StateValid)
	controller := otaclient.New(otaclient.WithChunkSize(492))

	image := make([]byte, 8192)
	for i := range image {
		image[i] = byte(i % 251)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controller.RunOTA(ctx, dev.Profile, dev, image); err != nil {
		t.Fatalf("RunOTA failed: %v", err)
	}
	if got := dev.Table.Image(partition.OTA1); string(got) != string(image) {
		t.Fatal("device did not receive the exact image bytes")
	}
}

func TestOddChunkingImageSucceeds(t *testing.T) {
	// spec §8 scenario 4: L = 5000, chunkSize 492.
	dev := New(partition.OTA0, partition.StateValid)
	controller := otaclient.New(otaclient.WithChunkSize(492))

	image := make([]byte, 5000)
	for i := range image {
		image[i] = byte(i * 13)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controller.RunOTA(ctx, dev.Profile, dev, image); err != nil {
		t.Fatalf("RunOTA failed: %v", err)
	}
	if got := dev.Table.Image(partition.OTA1); string(got) != string(image) {
		t.Fatal("device did not receive the exact image bytes")
	}
}

func TestRollbackCancellationBeforeFirstWrite(t *testing.T) {
	dev := New(partition.OTA1, partition.StatePendingVerify)
	controller := otaclient.New(otaclient.WithChunkSize(492))

	image := []byte("firmware")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controller.RunOTA(ctx, dev.Profile, dev, image); err != nil {
		t.Fatalf("RunOTA failed: %v", err)
	}
	if got := dev.Table.GetStatePartition(partition.OTA1); got != partition.StateValid {
		t.Fatalf("previously-running slot state = %s, want VALID (rollback cancelled)", got)
	}
}

func TestStartTimeoutWhenDeviceNeverAcks(t *testing.T) {
	// spec §8 scenario 5.
	dev := New(partition.OTA0, partition.StateValid)
	dev.DropStartAck()

	controller := otaclient.New(
		otaclient.WithChunkSize(492),
		otaclient.WithStartTimeout(200*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := controller.RunOTA(ctx, dev.Profile, dev, []byte("firmware"))
	if !otaclient.IsKind(err, otaclient.StartTimeout) {
		t.Fatalf("err = %v, want StartTimeout", err)
	}
}

func TestProgressStallWhenDeviceStopsReporting(t *testing.T) {
	// spec §8 scenario 6.
	dev := New(partition.OTA0, partition.StateValid)
	dev.StallProgressAbove(40)

	controller := otaclient.New(
		otaclient.WithChunkSize(32),
		otaclient.WithProgressTimeout(200*time.Millisecond),
		otaclient.WithFinalProgressTimeout(200*time.Millisecond),
	)

	image := make([]byte, 5000)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := controller.RunOTA(ctx, dev.Profile, dev, image)
	if !otaclient.IsKind(err, otaclient.ProgressStall) && !otaclient.IsKind(err, otaclient.FinalProgressTimeout) {
		t.Fatalf("err = %v, want ProgressStall or FinalProgressTimeout", err)
	}
}

func TestEmptyImageGuard(t *testing.T) {
	// spec §8 scenario 1: L = 0. The client sends no data packets, so the
	// device never starts a FlashWriter and never sends progress at all,
	// and the client's final wait times out as a stall.
	dev := New(partition.OTA0, partition.StateValid)
	controller := otaclient.New(
		otaclient.WithChunkSize(492),
		otaclient.WithFinalProgressTimeout(200*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := controller.RunOTA(ctx, dev.Profile, dev, nil)
	if !otaclient.IsKind(err, otaclient.ProgressStall) {
		t.Fatalf("err = %v, want ProgressStall", err)
	}
}

func TestDisconnectMidSessionFails(t *testing.T) {
	dev := New(partition.OTA0, partition.StateValid)
	controller := otaclient.New(
		otaclient.WithChunkSize(32),
		otaclient.WithStartTimeout(2 * time.Second),
	)

	image := make([]byte, 5000)
	// Stall progress immediately so the session is still live when we
	// disconnect from the test goroutine.
	dev.StallProgressAbove(0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		dev.Disconnect()
	}()

	err := controller.RunOTA(ctx, dev.Profile, dev, image)
	if !otaclient.IsKind(err, otaclient.Disconnected) {
		t.Fatalf("err = %v, want Disconnected", err)
	}
}
