package enroll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegionLockSerializes(t *testing.T) {
	locks := newRegionLocks()

	release, err := locks.acquire(context.Background(), "hq", time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Second acquisition on the same region must time out.
	_, err = locks.acquire(context.Background(), "hq", 50*time.Millisecond)
	if !errors.Is(err, ErrEnrollmentConflict) {
		t.Fatalf("expected ErrEnrollmentConflict, got %v", err)
	}

	release()

	release2, err := locks.acquire(context.Background(), "hq", time.Second)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func TestRegionLockIndependentRegions(t *testing.T) {
	locks := newRegionLocks()

	release1, err := locks.acquire(context.Background(), "north", time.Second)
	if err != nil {
		t.Fatalf("acquire north: %v", err)
	}
	defer release1()

	// A different region is a different lock.
	release2, err := locks.acquire(context.Background(), "south", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire south while north held: %v", err)
	}
	release2()
}

func TestRegionLockContextCancel(t *testing.T) {
	locks := newRegionLocks()

	release, err := locks.acquire(context.Background(), "hq", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = locks.acquire(ctx, "hq", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
