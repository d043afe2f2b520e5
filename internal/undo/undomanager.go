/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is an encoded scene state captured before a change.
// Blob content is opaque to the manager; size is estimated as len(Blob).
type Snapshot struct {
	Label string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo steps kept (0 means unlimited).
	MaxDepth int
	// MinInterval merges bursts of changes: a snapshot recorded within the
	// interval of the previous one is dropped, so one undo reverts the burst.
	MinInterval time.Duration
}

// Manager is an undo/redo history of scene snapshots.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
	// bytes held by both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg}
}

// Record stores the state as it was before a change and clears redo.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked()
	if n := len(m.undo); n > 0 && m.cfg.MinInterval > 0 {
		last := &m.undo[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// keep the older state, extend the burst window
			last.TS = s.TS
			return
		}
	}
	m.undo = append(m.undo, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked()
}

// Undo returns the state to restore and remembers current for Redo.
func (m *Manager) Undo(current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return Snapshot{}, false
	}
	s := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, Snapshot{Label: s.Label, Blob: current, TS: time.Now()})
	m.totalBytes += len(current) - len(s.Blob)
	return s, true
}

// Redo returns the state to re-apply and remembers current for Undo.
func (m *Manager) Redo(current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return Snapshot{}, false
	}
	s := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	// a redo is never merged into a previous burst
	m.undo = append(m.undo, Snapshot{Label: s.Label, Blob: current, TS: time.Time{}})
	m.totalBytes += len(current) - len(s.Blob)
	m.enforceCapsLocked()
	return s, true
}

func (m *Manager) CanUndo() bool { m.mu.Lock(); defer m.mu.Unlock(); return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { m.mu.Lock(); defer m.mu.Unlock(); return len(m.redo) > 0 }

// Clear drops all history, e.g. after a different scene was loaded.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo, m.totalBytes = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, undoDepth int, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) dropRedoLocked() {
	for _, s := range m.redo {
		m.totalBytes -= len(s.Blob)
	}
	m.redo = nil
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(m.undo[i].Blob)
		}
		m.undo = append([]Snapshot{}, m.undo[toDrop:]...)
	}
	// global memory cap: prune oldest undo entries, always keeping the latest
	for m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
}
