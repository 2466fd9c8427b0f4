package utils

import (
	"sync"
)

// OptionalMutex is a sync.Mutex that can be switched off for owners that promise to synchronize
// externally. The zero value does not lock.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

// OptionalRWMutex is the sync.RWMutex counterpart of OptionalMutex
type OptionalRWMutex struct {
	Mutex    sync.RWMutex
	UseMutex bool
}

func (m *OptionalRWMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if m.UseMutex {
		m.Mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if m.UseMutex {
		m.Mutex.RUnlock()
	}
}
