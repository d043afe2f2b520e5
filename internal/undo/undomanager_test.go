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
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{Blob: []byte("a"), TS: t0})
	m.Record(Snapshot{Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 snapshots, got %d", depth)
	}
	s, ok := m.Undo([]byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Redo([]byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanUndo() || m.CanRedo() {
		t.Fatalf("after redo: CanUndo=%v CanRedo=%v", m.CanUndo(), m.CanRedo())
	}
}

func TestCoalesceKeepsOldest(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{Blob: []byte("1"), TS: t0})
	m.Record(Snapshot{Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)})
	m.Record(Snapshot{Blob: []byte("3"), TS: t0.Add(55 * time.Millisecond)}) // still inside the extended window
	if _, depth, _ := m.Stats(); depth != 1 {
		t.Fatalf("expected burst coalesced to 1 snapshot, got %d", depth)
	}
	s, ok := m.Undo([]byte("now"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected the pre-burst snapshot '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	m.Record(Snapshot{Blob: []byte("a"), TS: time.Now()})
	m.Undo([]byte("b"))
	if !m.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	m.Record(Snapshot{Blob: []byte("a2"), TS: time.Now()})
	if m.CanRedo() {
		t.Fatalf("a new change must clear redo")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1 << 20, MaxDepth: 2})
	for i := 0; i < 10; i++ {
		m.Record(Snapshot{Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Second)})
	}
	if bytes, depth, _ := m.Stats(); depth != 2 || bytes != 10 {
		t.Fatalf("expected depth cap 2 and 10 bytes, got depth=%d bytes=%d", depth, bytes)
	}

	m = NewManager(Config{MaxBytes: 12})
	for i := 0; i < 10; i++ {
		m.Record(Snapshot{Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Second)})
	}
	if bytes, depth, _ := m.Stats(); bytes > 12 || depth != 2 {
		t.Fatalf("expected memory cap to keep 2 snapshots, got depth=%d bytes=%d", depth, bytes)
	}
}

func TestClear(t *testing.T) {
	m := NewManager(Config{})
	m.Record(Snapshot{Blob: []byte("abc"), TS: time.Now()})
	m.Clear()
	if bytes, depth, redo := m.Stats(); bytes != 0 || depth != 0 || redo != 0 {
		t.Fatalf("expected empty history, got %d/%d/%d", bytes, depth, redo)
	}
	if _, ok := m.Undo(nil); ok {
		t.Fatalf("undo on empty history must fail")
	}
}
