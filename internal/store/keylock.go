package store

import "sync"

// keyLock serializes read-modify-write sequences per key so a command and
// a sweep touching the same user cannot interleave destructively, while
// distinct keys proceed independently. Locks are never evicted; the roster
// is small and each entry is one mutex.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyLock) Lock(key string) func() {
	l := k.get(key)
	l.Lock()
	return l.Unlock
}
