// Package lock provides keyed mutual exclusion for booking writes.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrTimeout is returned when a lock could not be acquired in time.
var ErrTimeout = errors.New("timed out waiting for lock")

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

func VehicleKey(vehicleID string) string {
	return "lock:vehicle:" + vehicleID
}

func BookingKey(bookingID string) string {
	return "lock:booking:" + bookingID
}

// KeyedMutex is an in-process Locker. Keys are dropped once nobody holds or
// waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(key, l)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// size reports the number of live keys.
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
