package automation

import "sync"

// phoneLocks serializes events per phone. Entries are dropped once no
// goroutine holds or waits on them.
type phoneLocks struct {
	mu    sync.Mutex
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

func newPhoneLocks() *phoneLocks {
	return &phoneLocks{locks: make(map[string]*phoneLock)}
}

// Lock blocks until phone is free and returns the matching unlock.
func (l *phoneLocks) Lock(phone string) func() {
	l.mu.Lock()
	pl, ok := l.locks[phone]
	if !ok {
		pl = &phoneLock{}
		l.locks[phone] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, phone)
		}
		l.mu.Unlock()
	}
}

func (l *phoneLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
