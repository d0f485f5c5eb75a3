package otaclient

import (
	"errors"
	"testing"
	"time"
)

func TestProgressMonotonic(t *testing.T) {
	tr := newProgressTracker()
	for _, p := range []uint8{10, 5, 20, 20, 15, 50} {
		tr.update(p)
	}
	if got := tr.value(); got != 50 {
		t.Fatalf("value = %d, want 50", got)
	}
}

func TestWaitForResolvesExactlyOnCrossing(t *testing.T) {
	tr := newProgressTracker()
	done := tr.waitFor(50)

	select {
	case <-done:
		t.Fatal("waitFor resolved before threshold was crossed")
	case <-time.After(20 * time.Millisecond):
	}

	tr.update(40)
	select {
	case <-done:
		t.Fatal("waitFor resolved below threshold")
	case <-time.After(20 * time.Millisecond):
	}

	tr.update(50)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waitFor did not resolve after threshold crossed")
	}
}

func TestWaitForImmediateWhenAlreadyMet(t *testing.T) {
	tr := newProgressTracker()
	tr.update(80)
	done := tr.waitFor(50)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	default:
		t.Fatal("waitFor should resolve immediately when already met")
	}
}

func TestWaitForSameThresholdBothResolve(t *testing.T) {
	tr := newProgressTracker()
	a := tr.waitFor(50)
	b := tr.waitFor(50)
	tr.update(50)
	for _, d := range []<-chan error{a, b} {
		select {
		case err := <-d:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter did not resolve")
		}
	}
}

func TestRejectAllFailsOutstandingWaiters(t *testing.T) {
	tr := newProgressTracker()
	done := tr.waitFor(90)
	sentinel := errors.New("boom")
	tr.rejectAll(sentinel)

	select {
	case err := <-done:
		if err != sentinel {
			t.Fatalf("err = %v, want %v", err, sentinel)
		}
	case <-time.After(time.Second):
		t.Fatal("rejectAll did not resolve waiter")
	}

	// A waitFor registered after rejection fails immediately too.
	done2 := tr.waitFor(10)
	select {
	case err := <-done2:
		if err != sentinel {
			t.Fatalf("err = %v, want %v", err, sentinel)
		}
	default:
		t.Fatal("waitFor after rejectAll should resolve immediately")
	}
}

func TestRejectAllIdempotent(t *testing.T) {
	tr := newProgressTracker()
	first := errors.New("first")
	second := errors.New("second")
	tr.rejectAll(first)
	tr.rejectAll(second)

	done := tr.waitFor(10)
	select {
	case err := <-done:
		if err != first {
			t.Fatalf("second rejectAll should not override the first: got %v", err)
		}
	default:
		t.Fatal("expected immediate resolution")
	}
}
