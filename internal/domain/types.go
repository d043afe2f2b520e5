/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the persisted shapes shared by the scene engine, storage,
// the persistence gateway and the exporters. Runtime state (instances,
// selection, pending loads) lives in package scene.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"layoutquote/internal/vector"
)

// SceneDocument is the stored form of a scene.
// AreaWidth is the full side length of the square floor in millimeters.
type SceneDocument struct {
	AreaWidth float64        `json:"areaWidth"`
	Objects   []ObjectRecord `json:"objects"`
}

// ObjectRecord is one placed instance. Price and Name are informational;
// a reload re-resolves geometry and price from the catalog.
type ObjectRecord struct {
	PresetName string     `json:"presetName"`
	Category   string     `json:"category"`
	Price      int64      `json:"price"`
	Name       string     `json:"name,omitempty"`
	Position   [3]float64 `json:"position"`
	Rotation   Rotation   `json:"rotation"`
	Scale      [3]float64 `json:"scale"`
	Color      string     `json:"color,omitempty"` // "#rrggbb"; empty means the catalog color
}

// Rotation is an XYZ Euler triple in radians. On input it also accepts the
// four element form [x, y, z, "XYZ"] written by three.js; output is always
// three numbers.
type Rotation [3]float64

func (r *Rotation) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("rotation: %w", err)
	}
	if len(raw) != 3 && len(raw) != 4 {
		return fmt.Errorf("rotation: want 3 values, got %d", len(raw))
	}
	for i := 0; i < 3; i++ {
		if err := json.Unmarshal(raw[i], &r[i]); err != nil {
			return fmt.Errorf("rotation[%d]: %w", i, err)
		}
	}
	if len(raw) == 4 {
		var order string
		if err := json.Unmarshal(raw[3], &order); err != nil || order != "XYZ" {
			return fmt.Errorf("rotation: unsupported order %s", bytes.TrimSpace(raw[3]))
		}
	}
	return nil
}

func (r Rotation) Euler() vector.Euler { return vector.EulerFromArray(r) }

// MeshInfo is what a mesh loader reports about an external model, in model
// units before any placement scale. Parts holds one box per mesh node and is
// used for picking; it may be empty, in which case Bounds is used.
type MeshInfo struct {
	Bounds vector.Box3
	Parts  []vector.Box3
}

// ProjectRecord is a scene stored by a persistence gateway.
type ProjectRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TotalPrice int64           `json:"total_price"`
	Document   json.RawMessage `json:"objects,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
