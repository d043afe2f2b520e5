/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scenefile converts scenes to and from the stored JSON document.
//
// Loading is two-phase: Decode validates and parses the bytes, Rebuild builds
// a brand-new Scene from the document. A caller swaps its live scene only
// after both succeed, so a bad file never destroys the current one.
package scenefile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
	"layoutquote/internal/scene"
	"layoutquote/internal/vector"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed scene.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Schema returns the raw JSON schema of scene documents.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// Serialize captures the placed instances of s. Pending placements are not
// written; they have no measured geometry yet.
func Serialize(s *scene.Scene) domain.SceneDocument {
	doc := domain.SceneDocument{AreaWidth: s.AreaWidth(), Objects: []domain.ObjectRecord{}}
	for _, in := range s.Instances() {
		if in.Item.Name == "" {
			continue
		}
		doc.Objects = append(doc.Objects, domain.ObjectRecord{
			PresetName: in.Item.Name,
			Category:   in.Item.Category,
			Price:      in.Item.Price,
			Name:       in.Item.Name,
			Position:   in.Position.Array(),
			Rotation:   domain.Rotation(in.Rotation.Array()),
			Scale:      in.Scale.Array(),
			Color:      in.Color.Hex(),
		})
	}
	return doc
}

// Encode renders doc as indented JSON.
func Encode(doc domain.SceneDocument) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode validates data against the scene schema and parses it. Every
// failure wraps domain.ErrCorruptDocument.
func Decode(data []byte) (domain.SceneDocument, error) {
	var doc domain.SceneDocument
	sch, err := compiledSchema()
	if err != nil {
		return doc, fmt.Errorf("scene schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return doc, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return doc, fmt.Errorf("%w: %s", domain.ErrCorruptDocument, strings.Join(msgs, "; "))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return domain.SceneDocument{}, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	return doc, nil
}

// MeshSource yields already measured meshes by URL.
type MeshSource interface {
	Mesh(url string) (domain.MeshInfo, bool)
}

// Skip is a document entry that could not be restored.
type Skip struct {
	Index      int
	PresetName string
	Category   string
	Err        error
}

func (s Skip) String() string {
	return fmt.Sprintf("#%d %s/%s: %v", s.Index, s.Category, s.PresetName, s.Err)
}

// Rebuild creates a new Scene from doc. Geometry and price come from the
// catalog; the document only contributes transforms and colors. Entries whose
// preset is unknown are skipped and reported, never fatal. External-mesh
// entries are resolved from meshes when possible and otherwise left as
// pending placements for the caller to load. The result has no selection.
func Rebuild(doc domain.SceneDocument, cat *catalog.Catalog, meshes MeshSource) (*scene.Scene, []Skip, error) {
	l := applog.WithOperation(applog.WithComponent("scenefile"), "rebuild")
	s, err := scene.NewWithAreaWidth(doc.AreaWidth)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	var skips []Skip
	for i, rec := range doc.Objects {
		item, err := cat.Lookup(rec.Category, rec.PresetName)
		if err != nil {
			skips = append(skips, Skip{Index: i, PresetName: rec.PresetName, Category: rec.Category, Err: err})
			l.Warn("skipping unknown preset", slog.Int("index", i), slog.String("category", rec.Category), slog.String("preset", rec.PresetName))
			continue
		}
		color := item.Color
		if rec.Color != "" && !item.Fixed {
			c, err := domain.ParseColor(rec.Color)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: object %d: %v", domain.ErrCorruptDocument, i, err)
			}
			color = c
		}
		pos := vector.FromArray(rec.Position)
		rot := rec.Rotation.Euler()
		scl := vector.FromArray(rec.Scale)
		if (item.Fixed || item.Kind.IsMesh()) && !uniform(scl) {
			return nil, nil, fmt.Errorf("%w: object %d: %s needs a uniform scale, got %v", domain.ErrCorruptDocument, i, item.Key(), rec.Scale)
		}

		switch item.Kind {
		case catalog.KindBox, catalog.KindSphere, catalog.KindCylinder, catalog.KindDisc:
			s.Restore(&scene.Instance{Item: item, Position: pos, Rotation: rot, Scale: scl, Color: color})
		case catalog.KindExternalMesh:
			p, err := s.AddPending(item, &scene.Placement{Position: pos, Rotation: rot, Scale: scl, Color: color})
			if err != nil {
				return nil, nil, err
			}
			if meshes == nil {
				continue
			}
			if m, ok := meshes.Mesh(item.URL); ok {
				if _, err := s.Promote(p.ID, m); err != nil {
					if errors.Is(err, domain.ErrLoadFailed) {
						s.Discard(p.ID)
						skips = append(skips, Skip{Index: i, PresetName: rec.PresetName, Category: rec.Category, Err: err})
						continue
					}
					return nil, nil, err
				}
			}
		default:
			return nil, nil, fmt.Errorf("rebuild: unknown kind %q", item.Kind)
		}
	}
	if len(skips) > 0 {
		l.Info("scene rebuilt with skips", slog.Int("restored", s.Len()), slog.Int("pending", len(s.Pending())), slog.Int("skipped", len(skips)))
	}
	return s, skips, nil
}

// uniform reports whether all components of v agree within a relative 1e-9.
func uniform(v vector.Vec3) bool {
	tol := 1e-9 * math.Max(math.Abs(v.X), 1)
	return math.Abs(v.Y-v.X) <= tol && math.Abs(v.Z-v.X) <= tol
}

// Load is Decode followed by Rebuild.
func Load(data []byte, cat *catalog.Catalog, meshes MeshSource) (*scene.Scene, []Skip, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return Rebuild(doc, cat, meshes)
}
