// Package stage tracks the coordinator's lifecycle stage.
package stage

import (
	"sync/atomic"
)

type Stage string

const (
	Init         Stage = "Init"         // Default stage before Start is called
	Starting     Stage = "Starting"     // Start is underway
	Running      Stage = "Running"      // Periodic loops are ticking
	ShuttingDown Stage = "ShuttingDown" // Stop was requested, loops are draining
	ShutDown     Stage = "ShutDown"     // All loops have exited
)

type Manager struct {
	current *atomic.Value
}

func NewManager() *Manager {
	m := &Manager{current: &atomic.Value{}}
	m.Store(Init)
	return m
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(s Stage) {
	m.current.Store(s)
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	return m.current.CompareAndSwap(oldStage, newStage)
}
