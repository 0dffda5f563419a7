package services

import (
	"slices"
	"sync"
)

// DocLocks hands out per-document read/write locks.
//
// Writers (ingest, replace, delete) lock every document they touch;
// readers (render, outline, expand) hold the read lock of one document.
// Callers that also hold the store's write transaction must open it
// before locking.
type DocLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	sync.RWMutex
	refs int
}

// NewDocLocks creates an empty lock table.
func NewDocLocks() *DocLocks {
	return &DocLocks{locks: make(map[string]*docLock)}
}

// Lock takes the write locks of ids in sorted order and returns the
// function that releases them.
func (l *DocLocks) Lock(ids ...string) func() {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*docLock, 0, len(ids))
	for _, id := range ids {
		dl := l.acquire(id)
		dl.Lock()
		held = append(held, dl)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.release(ids[i])
		}
	}
}

// RLock takes the read lock of id and returns the function that
// releases it.
func (l *DocLocks) RLock(id string) func() {
	dl := l.acquire(id)
	dl.RLock()
	return func() {
		dl.RUnlock()
		l.release(id)
	}
}

func (l *DocLocks) acquire(id string) *docLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl, ok := l.locks[id]
	if !ok {
		dl = &docLock{}
		l.locks[id] = dl
	}
	dl.refs++
	return dl
}

func (l *DocLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl := l.locks[id]
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, id)
	}
}

// size returns the number of live lock entries.
func (l *DocLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
