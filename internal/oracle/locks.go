package oracle

import "sync"

// chatLocks serializes interactions per chat. Entries are dropped once no
// goroutine holds or waits on them.
type chatLocks struct {
	mu sync.Mutex
	m  map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{m: make(map[string]*chatLock)}
}

// lock blocks until chatID is free and returns the matching unlock.
func (l *chatLocks) lock(chatID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.m[chatID]
	if !ok {
		cl = &chatLock{}
		l.m[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.m, chatID)
		}
		l.mu.Unlock()
	}
}

func (l *chatLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
