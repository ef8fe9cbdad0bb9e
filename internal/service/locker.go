package service

import "sync"

// RoomLocker hands out one mutex per room code. Every read-modify-write of a
// room's GameState, including second-seat claims, must run under that room's
// mutex; rooms are independent of each other. Entries are reference counted:
// an entry stays in the map while any holder or waiter is attached, so every
// contender for a code serializes on the same mutex, and the entry is
// dropped once the last release runs.
type RoomLocker struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRoomLocker() *RoomLocker {
	return &RoomLocker{
		locks: make(map[string]*roomLock),
	}
}

// Lock acquires the mutex for code and returns its release func. Calling the
// release func more than once is a no-op.
func (that *RoomLocker) Lock(code string) func() {
	that.mu.Lock()
	entry, ok := that.locks[code]
	if !ok {
		entry = &roomLock{}
		that.locks[code] = entry
	}
	entry.refs++
	that.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			that.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(that.locks, code)
			}
			that.mu.Unlock()
		})
	}
}
