/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/vector"

	"github.com/google/uuid"
)

// ModelScale converts external model units (meters) to millimeters.
const ModelScale = 1000.0

// Instance is a placed copy of a catalog item.
type Instance struct {
	ID       uuid.UUID
	Item     catalog.Item
	Position vector.Vec3
	Rotation vector.Euler
	Scale    vector.Vec3
	Color    domain.Color
	// Mesh is set for external-mesh items and never changes after load.
	Mesh *domain.MeshInfo
}

// Transform returns the placement used for bounds and picking.
func (in *Instance) Transform() vector.Transform {
	return vector.Transform{Position: in.Position, Rotation: in.Rotation, Scale: in.Scale}
}

// NominalSize is the unscaled size: the catalog footprint for primitives, the
// measured model bounds for meshes.
func (in *Instance) NominalSize() vector.Vec3 {
	switch in.Item.Kind {
	case catalog.KindBox, catalog.KindSphere, catalog.KindCylinder, catalog.KindDisc:
		return in.Item.Footprint.Vec3()
	case catalog.KindExternalMesh:
		if in.Mesh == nil {
			return vector.Vec3{}
		}
		return in.Mesh.Bounds.Size()
	}
	panic(fmt.Sprintf("scene: unhandled kind %q", in.Item.Kind))
}

// RealSize is the object-space size in millimeters, ignoring rotation.
func (in *Instance) RealSize() vector.Vec3 { return in.NominalSize().Mul(in.Scale) }

// Shape returns the local-space geometry used for picking.
func (in *Instance) Shape() vector.Shape {
	switch in.Item.Kind {
	case catalog.KindBox, catalog.KindCylinder, catalog.KindDisc:
		return vector.BoxShape{Box: vector.BoxAt(vector.Vec3{}, in.Item.Footprint.Vec3())}
	case catalog.KindSphere:
		return vector.EllipsoidShape{Box: vector.BoxAt(vector.Vec3{}, in.Item.Footprint.Vec3())}
	case catalog.KindExternalMesh:
		if in.Mesh == nil {
			return vector.CompositeShape{}
		}
		if len(in.Mesh.Parts) == 0 {
			return vector.CompositeShape{Parts: []vector.Box3{in.Mesh.Bounds}}
		}
		return vector.CompositeShape{Parts: in.Mesh.Parts}
	}
	panic(fmt.Sprintf("scene: unhandled kind %q", in.Item.Kind))
}

// Bounds is the world axis-aligned box of the instance.
func (in *Instance) Bounds() vector.Box3 { return vector.WorldBounds(in.Shape(), in.Transform()) }

// Pick intersects a world ray with the instance.
func (in *Instance) Pick(r vector.Ray) (float64, bool) { return vector.Pick(in.Shape(), in.Transform(), r) }

// Clone returns a deep copy. MeshInfo is shared since it is immutable.
func (in *Instance) Clone() *Instance {
	c := *in
	return &c
}

// Placement is a transform to apply to a pending instance once its mesh is known.
type Placement struct {
	Position vector.Vec3
	Rotation vector.Euler
	Scale    vector.Vec3
	Color    domain.Color
}

// Pending is an external-mesh placement waiting for its load to finish. It is
// invisible to picking, pricing and serialization.
type Pending struct {
	ID        uuid.UUID
	Item      catalog.Item
	Placement *Placement
}
