/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"layoutquote/internal/domain"
	"layoutquote/internal/scene"
	"layoutquote/internal/scenefile"

	"github.com/google/uuid"
)

// historyEntry is one undo step: the scene document plus the mesh placements
// that were still loading. Pending placements are not part of the document,
// so they travel next to it.
type historyEntry struct {
	Doc     json.RawMessage `json:"doc"`
	Pending []pendingEntry  `json:"pending,omitempty"`
}

type pendingEntry struct {
	ID        uuid.UUID        `json:"id"`
	Category  string           `json:"category"`
	Name      string           `json:"name"`
	Placement *scene.Placement `json:"placement,omitempty"`
}

// checkpoint captures the current state for the undo history.
func (s *Session) checkpoint() ([]byte, error) {
	doc, err := s.encode()
	if err != nil {
		return nil, err
	}
	e := historyEntry{Doc: doc}
	for _, p := range s.sc.Pending() {
		e.Pending = append(e.Pending, pendingEntry{ID: p.ID, Category: p.Item.Category, Name: p.Item.Name, Placement: p.Placement})
	}
	return json.Marshal(e)
}

// restore rebuilds the scene from a history entry. Placements of the entry
// that are still loading keep their load; those whose load already ended are
// placed from the cache or loaded again.
func (s *Session) restore(blob []byte) error {
	var e historyEntry
	if err := json.Unmarshal(blob, &e); err != nil {
		return fmt.Errorf("%w: history entry: %v", domain.ErrCorruptDocument, err)
	}
	sc, _, err := scenefile.Load(e.Doc, s.cat, s.cache)
	if err != nil {
		return err
	}
	var inflight []*scene.Pending
	for _, pe := range e.Pending {
		if p, ok := s.sc.PendingByID(pe.ID); ok {
			inflight = append(inflight, p)
			continue
		}
		item, err := s.cat.Lookup(pe.Category, pe.Name)
		if err != nil {
			s.log.Warn("pending placement dropped", slog.String("category", pe.Category), slog.String("preset", pe.Name), slog.Any("err", err))
			continue
		}
		p, err := sc.AddPending(item, pe.Placement)
		if err != nil {
			return err
		}
		if m, ok := s.cache.Mesh(item.URL); ok {
			if _, err := sc.Promote(p.ID, m); err != nil {
				sc.Discard(p.ID)
			}
		}
	}
	sc.ClearSelection()
	s.adopt(sc, inflight)
	return nil
}
