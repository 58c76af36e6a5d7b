package racelock

import (
	"context"
	"sync"
)

// Locker serialises writers of the same race. The returned release func is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, raceID string) (release func(), err error)
}

// Noop never blocks; the store's version guard alone resolves conflicts
type Noop struct{}

func (Noop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Local is an in-process keyed mutex that honours context cancellation
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

func (l *Local) Lock(ctx context.Context, raceID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[raceID]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[raceID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.unref(raceID, e)
			})
		}, nil
	case <-ctx.Done():
		l.unref(raceID, e)
		return nil, ctx.Err()
	}
}

func (l *Local) unref(raceID string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, raceID)
	}
}
