package core

import (
	"sync"

	"pkt.systems/courtside/schema"
)

// Mirror holds the most recent snapshot received from the authority.
type Mirror struct {
	mu      sync.RWMutex
	current schema.Snapshot
	ok      bool
	version uint64
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{}
}

// Replace overwrites the held snapshot.
func (m *Mirror) Replace(snap schema.Snapshot) {
	m.mu.Lock()
	m.current = snap
	m.ok = true
	m.version++
	m.mu.Unlock()
}

// Current returns the held snapshot and whether one has been received.
func (m *Mirror) Current() (schema.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.ok
}

// Version counts accepted snapshots.
func (m *Mirror) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Accept decodes payload and replaces the held snapshot with it. A payload
// that does not decode leaves the held snapshot untouched.
func (m *Mirror) Accept(payload []byte) (schema.Snapshot, error) {
	snap, err := schema.DecodeSnapshot(payload)
	if err != nil {
		return schema.Snapshot{}, err
	}
	m.Replace(snap)
	return snap, nil
}
