package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocLocks_ReleaseCleansUp(t *testing.T) {
	locks := NewDocLocks()

	unlock := locks.Lock("b", "a", "a")
	assert.Equal(t, 2, locks.size())
	unlock()
	assert.Equal(t, 0, locks.size())

	runlock := locks.RLock("a")
	assert.Equal(t, 1, locks.size())
	runlock()
	assert.Equal(t, 0, locks.size())
}

func TestDocLocks_ReadersShare(t *testing.T) {
	locks := NewDocLocks()

	first := locks.RLock("a")
	done := make(chan struct{})
	go func() {
		second := locks.RLock("a")
		second()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second reader blocked")
	}
	first()
}

func TestDocLocks_WriterExcludesReaders(t *testing.T) {
	locks := NewDocLocks()
	var inside atomic.Bool

	unlock := locks.Lock("a")
	inside.Store(true)

	read := make(chan bool)
	go func() {
		r := locks.RLock("a")
		defer r()
		read <- inside.Load()
	}()

	time.Sleep(20 * time.Millisecond)
	inside.Store(false)
	unlock()

	assert.False(t, <-read, "reader ran while the writer held the lock")
}

func TestDocLocks_OverlappingWritersDoNotDeadlock(t *testing.T) {
	locks := NewDocLocks()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.Lock("a", "b")()
		}()
		go func() {
			defer wg.Done()
			locks.Lock("b", "a")()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writers deadlocked")
	}
	assert.Equal(t, 0, locks.size())
}

func TestDocLocks_IndependentDocuments(t *testing.T) {
	locks := NewDocLocks()

	unlock := locks.Lock("a")
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.Lock("b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
}
