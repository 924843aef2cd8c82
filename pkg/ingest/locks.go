package ingest

import (
	"fmt"
	"sync"
)

// tupleLocks hands out one mutex per (owner, channel, customer) tuple.
// Entries are refcounted so the map does not grow with tuple churn.
type tupleLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTupleLocks() *tupleLocks {
	return &tupleLocks{locks: make(map[string]*lockEntry)}
}

func (t *tupleLocks) lock(ownerID uint, channel, customerID string) (unlock func()) {
	key := fmt.Sprintf("%d|%s|%s", ownerID, channel, customerID)

	t.mu.Lock()
	e := t.locks[key]
	if e == nil {
		e = &lockEntry{}
		t.locks[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
