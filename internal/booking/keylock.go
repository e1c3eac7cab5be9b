package booking

import (
	"sort"
	"sync"
)

// keyLock hands out one mutex per key.  Entries are reference counted
// and dropped once no goroutine holds or waits for them, so the map
// only grows with the number of keys in flight.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*keyEntry)}
}

// Lock acquires the given keys in sorted order and returns a function
// that releases all of them.  Sorting keeps acquisition order global,
// so callers locking overlapping key sets cannot deadlock.
func (l *keyLock) Lock(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)

	held := make([]*keyEntry, 0, len(uniq))
	for _, k := range uniq {
		l.mu.Lock()
		e, ok := l.locks[k]
		if !ok {
			e = &keyEntry{}
			l.locks[k] = e
		}
		e.refs++
		l.mu.Unlock()

		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, uniq[i])
			}
			l.mu.Unlock()
		}
	}
}

// size reports the number of live entries.
func (l *keyLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
