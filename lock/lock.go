// Package lock serializes mutations of a single match. Two scorers working
// the same match must never interleave their read-modify-write cycles.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// MatchLocker grants exclusive access to a key until unlock is called.
type MatchLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func MatchKey(matchID int) string { return fmt.Sprintf("match:%d", matchID) }

type entry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is an in-process MatchLocker. Entries are dropped once no
// goroutine holds or waits for them.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*entry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("lock %s: %w: %w", key, ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}
