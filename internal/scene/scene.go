/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene is the placement model: the floor, the placed instances, the
// external-mesh placements still loading, and the current selection.
//
// A Scene is not safe for concurrent use. It is owned by one session goroutine.
// Every mutator either succeeds completely or leaves the scene untouched.
package scene

import (
	"fmt"
	"math"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/vector"

	"github.com/google/uuid"
)

// DefaultAreaWidth is the full floor side in millimeters (a 4 pyeong square).
const DefaultAreaWidth = 3640.0

type Scene struct {
	half      float64
	instances []*Instance
	pending   []*Pending
	selected  uuid.UUID
}

// New creates an empty scene with the given floor half-extent.
func New(halfExtent float64) (*Scene, error) {
	if !(halfExtent > 0) || math.IsInf(halfExtent, 0) {
		return nil, fmt.Errorf("half extent %v: %w", halfExtent, domain.ErrInvalidInput)
	}
	return &Scene{half: halfExtent}, nil
}

// NewWithAreaWidth creates an empty scene for a square floor of side w.
func NewWithAreaWidth(w float64) (*Scene, error) { return New(w / 2) }

func (s *Scene) HalfExtent() float64 { return s.half }

// AreaWidth is the full floor side, 2 * HalfExtent.
func (s *Scene) AreaWidth() float64 { return s.half * 2 }

// SetAreaWidth resizes the floor. Existing instances are not moved; only
// subsequent drags are clamped to the new bounds.
func (s *Scene) SetAreaWidth(w float64) error {
	if !(w > 0) || math.IsInf(w, 0) {
		return fmt.Errorf("area width %v: %w", w, domain.ErrInvalidInput)
	}
	s.half = w / 2
	return nil
}

// Instances returns the placed instances in creation order.
func (s *Scene) Instances() []*Instance { return append([]*Instance(nil), s.instances...) }

func (s *Scene) Len() int { return len(s.instances) }

// Pending returns placements still waiting for their mesh.
func (s *Scene) Pending() []*Pending { return append([]*Pending(nil), s.pending...) }

// Instance looks up a placed instance.
func (s *Scene) Instance(id uuid.UUID) (*Instance, error) {
	for _, in := range s.instances {
		if in.ID == id {
			return in, nil
		}
	}
	return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
}

// Selected returns the selected instance, if any.
func (s *Scene) Selected() (*Instance, bool) {
	if s.selected == uuid.Nil {
		return nil, false
	}
	in, err := s.Instance(s.selected)
	if err != nil {
		return nil, false
	}
	return in, true
}

func (s *Scene) Select(id uuid.UUID) error {
	if _, err := s.Instance(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

func (s *Scene) ClearSelection() { s.selected = uuid.Nil }

// Place creates a primitive resting on the floor (y = height/2) with no
// rotation and unit scale, and selects it. External-mesh items need their
// measured bounds and go through PlaceMesh or AddPending instead.
func (s *Scene) Place(item catalog.Item) (*Instance, error) {
	switch item.Kind {
	case catalog.KindBox, catalog.KindSphere, catalog.KindCylinder, catalog.KindDisc:
	case catalog.KindExternalMesh:
		return nil, fmt.Errorf("place %s: mesh not loaded: %w", item.Key(), domain.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("place %s: unknown kind %q: %w", item.Key(), item.Kind, domain.ErrInvalidInput)
	}
	in := &Instance{
		ID:       uuid.New(),
		Item:     item,
		Position: vector.V(0, item.Footprint.Height/2, 0),
		Scale:    vector.Splat(1),
		Color:    item.Color,
	}
	s.instances = append(s.instances, in)
	s.selected = in.ID
	return in, nil
}

// PlaceMesh creates an external-mesh instance from its measured bounds. The
// model is scaled by ModelScale, centered on the origin in x/z and left with
// its own origin on the floor, and selected.
func (s *Scene) PlaceMesh(item catalog.Item, mesh domain.MeshInfo) (*Instance, error) {
	in, err := newMeshInstance(item, mesh)
	if err != nil {
		return nil, err
	}
	s.instances = append(s.instances, in)
	s.selected = in.ID
	return in, nil
}

func newMeshInstance(item catalog.Item, mesh domain.MeshInfo) (*Instance, error) {
	if !item.Kind.IsMesh() {
		return nil, fmt.Errorf("place mesh %s: kind %q: %w", item.Key(), item.Kind, domain.ErrInvalidInput)
	}
	if mesh.Bounds.IsEmpty() {
		return nil, fmt.Errorf("place mesh %s: empty bounds: %w", item.Key(), domain.ErrLoadFailed)
	}
	m := mesh
	c := m.Bounds.Center()
	return &Instance{
		ID:       uuid.New(),
		Item:     item,
		Position: vector.V(-c.X*ModelScale, 0, -c.Z*ModelScale),
		Scale:    vector.Splat(ModelScale),
		Color:    item.Color,
		Mesh:     &m,
	}, nil
}

// AddPending records an external-mesh placement whose load is in flight.
// placement, when non-nil, replaces the default transform on promotion.
func (s *Scene) AddPending(item catalog.Item, placement *Placement) (*Pending, error) {
	if !item.Kind.IsMesh() {
		return nil, fmt.Errorf("pending %s: kind %q: %w", item.Key(), item.Kind, domain.ErrInvalidInput)
	}
	p := &Pending{ID: uuid.New(), Item: item, Placement: placement}
	s.pending = append(s.pending, p)
	return p, nil
}

// PendingByID looks up a pending placement.
func (s *Scene) PendingByID(id uuid.UUID) (*Pending, bool) {
	for _, p := range s.pending {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Promote turns a pending placement into an instance. Without a stored
// placement the new instance gets the PlaceMesh defaults and is selected;
// with one, the placement is applied and selection is left alone.
// A pending id that is no longer known yields ErrNotFound.
func (s *Scene) Promote(id uuid.UUID, mesh domain.MeshInfo) (*Instance, error) {
	idx := -1
	for i, p := range s.pending {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("pending %s: %w", id, domain.ErrNotFound)
	}
	p := s.pending[idx]
	in, err := newMeshInstance(p.Item, mesh)
	if err != nil {
		return nil, err
	}
	in.ID = p.ID
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	s.instances = append(s.instances, in)
	if p.Placement != nil {
		in.Position = p.Placement.Position
		in.Rotation = p.Placement.Rotation
		in.Scale = p.Placement.Scale
		if !p.Item.Fixed {
			in.Color = p.Placement.Color
		}
		return in, nil
	}
	s.selected = in.ID
	return in, nil
}

// RestorePending puts back a pending placement taken from another scene. The
// id is kept so that the load already under way still finds it.
func (s *Scene) RestorePending(p *Pending) {
	if _, ok := s.PendingByID(p.ID); ok {
		return
	}
	cp := *p
	s.pending = append(s.pending, &cp)
}

// Discard drops a pending placement. It reports whether anything was removed.
func (s *Scene) Discard(id uuid.UUID) bool {
	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Remove deletes an instance. If it was selected the selection becomes empty.
func (s *Scene) Remove(id uuid.UUID) error {
	for i, in := range s.instances {
		if in.ID == id {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			if s.selected == id {
				s.selected = uuid.Nil
			}
			return nil
		}
	}
	return fmt.Errorf("remove %s: %w", id, domain.ErrNotFound)
}

// Resize sets the real size along one axis.
//
// Primitives scale that axis only and are refused when fixed. External meshes
// always scale uniformly; the factor is derived from the bounds measured at
// load time, never from the currently displayed size, so repeated edits do
// not drift.
func (s *Scene) Resize(id uuid.UUID, axis vector.Axis, realSize float64) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	if !(realSize > 0) || math.IsInf(realSize, 0) {
		return fmt.Errorf("resize %s to %v: %w", in.Item.Key(), realSize, domain.ErrInvalidInput)
	}
	switch in.Item.Kind {
	case catalog.KindExternalMesh:
		orig := in.NominalSize().Get(axis)
		if orig <= 0 {
			return fmt.Errorf("resize %s: model has no extent on %s: %w", in.Item.Key(), axis, domain.ErrInvalidInput)
		}
		in.Scale = vector.Splat(realSize / orig)
	case catalog.KindBox, catalog.KindSphere, catalog.KindCylinder, catalog.KindDisc:
		if in.Item.Fixed {
			return fmt.Errorf("resize %s: %w", in.Item.Key(), domain.ErrForbidden)
		}
		in.Scale = in.Scale.With(axis, realSize/in.Item.Footprint.Vec3().Get(axis))
	default:
		return fmt.Errorf("resize %s: unknown kind %q: %w", in.Item.Key(), in.Item.Kind, domain.ErrInvalidInput)
	}
	return nil
}

// SetColor overrides the color. Fixed items are refused.
func (s *Scene) SetColor(id uuid.UUID, c domain.Color) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	if in.Item.Fixed {
		return fmt.Errorf("recolor %s: %w", in.Item.Key(), domain.ErrForbidden)
	}
	in.Color = c
	return nil
}

// SetVerticalPosition sets y. Always permitted.
func (s *Scene) SetVerticalPosition(id uuid.UUID, y float64) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return fmt.Errorf("height %v: %w", y, domain.ErrInvalidInput)
	}
	in.Position.Y = y
	return nil
}

// MoveOnFloor sets x and z, clamped to the floor half-extent. y is kept.
func (s *Scene) MoveOnFloor(id uuid.UUID, x, z float64) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	in.Position.X = vector.Clamp(x, -s.half, s.half)
	in.Position.Z = vector.Clamp(z, -s.half, s.half)
	return nil
}

// SetPosition places an instance without clamping. Used for attachment.
func (s *Scene) SetPosition(id uuid.UUID, p vector.Vec3) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	in.Position = p
	return nil
}

// Rotate adds to the yaw (y) and pitch (x) angles. No clamping.
func (s *Scene) Rotate(id uuid.UUID, dYaw, dPitch float64) error {
	in, err := s.Instance(id)
	if err != nil {
		return err
	}
	in.Rotation.Y += dYaw
	in.Rotation.X += dPitch
	return nil
}

// Restore appends a fully specified instance, as read back from a document.
// The caller supplies all fields; a zero ID gets a fresh one.
func (s *Scene) Restore(in *Instance) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	s.instances = append(s.instances, in)
}

// Clone returns a deep copy with the same ids, pendings and selection.
func (s *Scene) Clone() *Scene {
	c := &Scene{half: s.half, selected: s.selected}
	for _, in := range s.instances {
		c.instances = append(c.instances, in.Clone())
	}
	for _, p := range s.pending {
		cp := *p
		c.pending = append(c.pending, &cp)
	}
	return c
}
