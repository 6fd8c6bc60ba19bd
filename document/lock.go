package document

import "sync"

// LibraryLock serializes calls into a non-reentrant rendering library. One
// lock guards one open library handle; everything that calls into that handle
// goes through Do.
type LibraryLock struct {
	mu sync.Mutex
}

// Do runs fn with the lock held. The lock is released on every exit path,
// including an error return or a panic inside fn.
func (l *LibraryLock) Do(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}
