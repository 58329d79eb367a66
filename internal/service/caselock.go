package service

import "sync"

// caseLocks serializes mutations per case id. Operations on different case
// ids proceed in parallel; operations on the same case are ordered by
// arrival at the lock. Repositories additionally guard updates with
// optimistic version counters for cross-process safety.
type caseLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCaseLocks() *caseLocks {
	return &caseLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the per-case mutex and returns its release func.
func (l *caseLocks) lock(caseID string) func() {
	l.mu.Lock()
	m, ok := l.locks[caseID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[caseID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
