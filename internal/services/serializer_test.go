package services

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSerializerAcquireRelease(t *testing.T) {
	s := NewSerializer()

	if !s.Acquire("user1") {
		t.Fatal("first Acquire should succeed")
	}
	if s.Acquire("user1") {
		t.Fatal("second Acquire for the same user should fail")
	}
	if !s.Acquire("user2") {
		t.Fatal("Acquire for a different user should succeed")
	}

	s.Release("user1")
	if !s.Acquire("user1") {
		t.Fatal("Acquire after Release should succeed")
	}

	if s.PendingCount() != 2 {
		t.Fatalf("expected 2 pending markers, got %d", s.PendingCount())
	}
}

func TestSerializerReleaseIdempotent(t *testing.T) {
	s := NewSerializer()

	// Releasing without a marker must be a no-op, not an error.
	s.Release("ghost")

	if !s.Acquire("ghost") {
		t.Fatal("Acquire should succeed after no-op Release")
	}
	s.Release("ghost")
	s.Release("ghost")
	if s.PendingCount() != 0 {
		t.Fatalf("expected 0 pending markers, got %d", s.PendingCount())
	}
}

func TestSerializerConcurrentAcquire(t *testing.T) {
	s := NewSerializer()

	const goroutines = 50
	var acquired int64
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Acquire("user1") {
				atomic.AddInt64(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Fatalf("expected exactly 1 successful Acquire, got %d", acquired)
	}
}
