package racelock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerialisesSameRace(t *testing.T) {
	locker := NewLocal()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "race-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Empty(t, locker.locks, "entries are dropped once unused")
}

func TestLocal_DifferentRacesDoNotBlock(t *testing.T) {
	locker := NewLocal()

	releaseA, err := locker.Lock(context.Background(), "race-a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "race-b")
	require.NoError(t, err)
	releaseB()
}

func TestLocal_HonoursContext(t *testing.T) {
	locker := NewLocal()
	release, err := locker.Lock(context.Background(), "race-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "race-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	again, err := locker.Lock(context.Background(), "race-1")
	require.NoError(t, err)
	again()
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Lock(context.Background(), "race-1")
	require.NoError(t, err)
	release()
}
