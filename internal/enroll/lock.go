package enroll

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// regionLocks serializes the check-then-write enrollment sequence per
// region. Each region maps to a one-slot channel used as a mutex with an
// acquisition timeout.
type regionLocks struct {
	locks cmap.ConcurrentMap[string, chan struct{}]
}

func newRegionLocks() *regionLocks {
	return &regionLocks{locks: cmap.New[chan struct{}]()}
}

// acquire blocks until the region lock is held, the timeout fires, or ctx
// is done. On success the returned release func must be called.
func (l *regionLocks) acquire(ctx context.Context, region string, timeout time.Duration) (func(), error) {
	l.locks.SetIfAbsent(region, make(chan struct{}, 1))
	ch, _ := l.locks.Get(region)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrEnrollmentConflict
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
