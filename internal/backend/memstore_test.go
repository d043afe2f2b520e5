/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/scenefile"
	"layoutquote/internal/storage"
)

// memStore mirrors PGStore semantics in memory.
type memStore struct {
	mu       sync.Mutex
	projects []domain.ProjectRecord
	objects  map[string]int
	presets  []Preset
	pingErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string]int{}} }

func (m *memStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memStore) setPingErr(err error) {
	m.mu.Lock()
	m.pingErr = err
	m.mu.Unlock()
}

func (m *memStore) SaveProject(_ context.Context, name string, doc []byte, total int64) (string, error) {
	if err := checkProject(name, total); err != nil {
		return "", err
	}
	parsed, err := scenefile.Decode(doc)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.projects = append(m.projects, domain.ProjectRecord{
		ID: id, Name: name, TotalPrice: total, Document: append([]byte(nil), doc...),
		CreatedAt: time.Now().UTC().Add(time.Duration(len(m.projects)) * time.Millisecond),
	})
	m.objects[id] = len(parsed.Objects)
	return id, nil
}

func (m *memStore) ListProjects(_ context.Context, limit int) ([]storage.ProjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := []storage.ProjectSummary{}
	for i := len(m.projects) - 1; i >= 0 && len(out) < limit; i-- {
		p := m.projects[i]
		out = append(out, storage.ProjectSummary{ID: p.ID, Name: p.Name, TotalPrice: p.TotalPrice, Objects: m.objects[p.ID], CreatedAt: p.CreatedAt})
	}
	return out, nil
}

func (m *memStore) GetProject(_ context.Context, id string) (domain.ProjectRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.ProjectRecord{}, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
}

func (m *memStore) ListPresets(context.Context) ([]Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Preset{}, m.presets...), nil
}

func (m *memStore) CreatePreset(_ context.Context, it catalog.Item) (Preset, error) {
	if err := it.Validate(); err != nil {
		return Preset{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.presets {
		if p.Key() == it.Key() {
			return Preset{}, fmt.Errorf("preset %s: %w", it.Key(), ErrConflict)
		}
	}
	p := Preset{ID: uuid.NewString(), Item: it}
	m.presets = append(m.presets, p)
	return p, nil
}

func (m *memStore) DeletePreset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.presets {
		if p.ID == id {
			m.presets = append(m.presets[:i], m.presets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("preset %s: %w", id, domain.ErrNotFound)
}
