package request_test

import (
	"testing"

	"arduinoast.dev/core/pkg/request"
)

func TestNewIDIsDistinctForSuccessiveRequests(t *testing.T) {
	table := request.NewTable()

	first := table.NewID("DIGITAL_READ_REQUEST", 100)
	second := table.NewID("DIGITAL_READ_REQUEST", 100)

	if first == second {
		t.Fatalf("expected distinct ids for successive requests, got %q twice", first)
	}
}

func TestResolveUnblocksWait(t *testing.T) {
	table := request.NewTable()
	id := table.NewID("ANALOG_READ_REQUEST", 0)
	pending := table.Open(id, "ANALOG_READ_REQUEST", 0, 5000)

	done := make(chan struct{})
	var value any
	var err error
	go func() {
		value, err = pending.Wait()
		close(done)
	}()

	if ok := table.Resolve(id, 512); !ok {
		t.Fatalf("expected Resolve to match the outstanding request")
	}
	<-done

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value != 512 {
		t.Errorf("expected resolved value 512, got %v", value)
	}
}

func TestResolveRejectsStaleID(t *testing.T) {
	table := request.NewTable()
	id := table.NewID("MILLIS_REQUEST", 0)
	table.Open(id, "MILLIS_REQUEST", 0, 5000)

	if ok := table.Resolve("some-other-id", 1); ok {
		t.Fatalf("expected Resolve to reject an id that does not match the outstanding request")
	}
}

func TestSingleOutstandingRequest(t *testing.T) {
	table := request.NewTable()
	id := table.NewID("MICROS_REQUEST", 0)
	table.Open(id, "MICROS_REQUEST", 0, 5000)

	if _, ok := table.Outstanding(); !ok {
		t.Fatalf("expected an outstanding request right after Open")
	}

	table.Resolve(id, int64(42))

	if _, ok := table.Outstanding(); ok {
		t.Fatalf("expected no outstanding request once resolved")
	}
}

func TestSweepEvictsPastDeadline(t *testing.T) {
	table := request.NewTable()
	id := table.NewID("DIGITAL_READ_REQUEST", 1000)
	pending := table.Open(id, "DIGITAL_READ_REQUEST", 1000, 5000)

	if evicted := table.Sweep(1999); len(evicted) != 0 {
		t.Fatalf("expected no eviction before the deadline, got %v", evicted)
	}

	evicted := table.Sweep(6000)
	if len(evicted) != 1 || evicted[0] != id {
		t.Fatalf("expected %q to be evicted at the deadline, got %v", id, evicted)
	}

	_, err := pending.Wait()
	if err == nil {
		t.Fatalf("expected a timeout error from Wait() after Sweep evicts the request")
	}
}

func TestRejectCompletesWithError(t *testing.T) {
	table := request.NewTable()
	id := table.NewID("LIBRARY_METHOD_REQUEST", 0)
	pending := table.Open(id, "LIBRARY_METHOD_REQUEST", 0, 5000)

	table.Reject(id, errBoom)

	_, err := pending.Wait()
	if err != errBoom {
		t.Fatalf("expected Wait to surface the rejected error, got %v", err)
	}
}

var errBoom = fakeErr("boom")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
