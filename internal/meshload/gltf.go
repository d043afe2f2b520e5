/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package meshload

import (
	"errors"
	"fmt"

	"layoutquote/internal/domain"
	"layoutquote/internal/vector"

	"github.com/qmuntal/gltf"
)

// measure walks the default scene of doc and returns the model bounds plus one
// box per mesh node. Only accessor min/max metadata is read; vertex buffers
// are never touched.
func measure(doc *gltf.Document) (domain.MeshInfo, error) {
	var roots []int
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		for _, n := range doc.Scenes[int(*doc.Scene)].Nodes {
			roots = append(roots, int(n))
		}
	case len(doc.Scenes) > 0:
		for _, n := range doc.Scenes[0].Nodes {
			roots = append(roots, int(n))
		}
	default:
		roots = rootNodes(doc)
	}

	info := domain.MeshInfo{Bounds: vector.EmptyBox()}
	visited := make(map[int]bool, len(doc.Nodes))
	var walk func(idx int, parent mat4) error
	walk = func(idx int, parent mat4) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node %d out of range", idx)
		}
		if visited[idx] {
			return fmt.Errorf("node %d visited twice", idx)
		}
		visited[idx] = true
		n := doc.Nodes[idx]
		world := parent.mul(localMatrix(n))
		if n.Mesh != nil {
			local, err := meshBounds(doc, int(*n.Mesh))
			if err != nil {
				return err
			}
			if !local.IsEmpty() {
				part := world.bounds(local)
				info.Parts = append(info.Parts, part)
				info.Bounds = info.Bounds.Union(part)
			}
		}
		for _, c := range n.Children {
			if err := walk(int(c), world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r, identity4); err != nil {
			return domain.MeshInfo{}, err
		}
	}
	if info.Bounds.IsEmpty() {
		return domain.MeshInfo{}, errors.New("model has no measurable geometry")
	}
	return info, nil
}

func rootNodes(doc *gltf.Document) []int {
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[int(c)] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

// meshBounds unions the POSITION min/max of every primitive of a mesh.
func meshBounds(doc *gltf.Document, idx int) (vector.Box3, error) {
	if idx < 0 || idx >= len(doc.Meshes) {
		return vector.Box3{}, fmt.Errorf("mesh %d out of range", idx)
	}
	b := vector.EmptyBox()
	for _, p := range doc.Meshes[idx].Primitives {
		ai, ok := p.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		if int(ai) < 0 || int(ai) >= len(doc.Accessors) {
			return vector.Box3{}, fmt.Errorf("accessor %d out of range", ai)
		}
		acc := doc.Accessors[int(ai)]
		lo, hi := toF64(acc.Min), toF64(acc.Max)
		if len(lo) < 3 || len(hi) < 3 {
			return vector.Box3{}, fmt.Errorf("accessor %d has no min/max", ai)
		}
		b = b.Expand(vector.V(lo[0], lo[1], lo[2])).Expand(vector.V(hi[0], hi[1], hi[2]))
	}
	return b, nil
}

func toF64[T float32 | float64](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// mat4 is a column-major 4x4 matrix as used by glTF.
type mat4 [16]float64

var identity4 = mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (a mat4) mul(b mat4) mat4 {
	var out mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[k*4+r] * b[c*4+k]
			}
			out[c*4+r] = s
		}
	}
	return out
}

func (a mat4) apply(p vector.Vec3) vector.Vec3 {
	return vector.V(
		a[0]*p.X+a[4]*p.Y+a[8]*p.Z+a[12],
		a[1]*p.X+a[5]*p.Y+a[9]*p.Z+a[13],
		a[2]*p.X+a[6]*p.Y+a[10]*p.Z+a[14],
	)
}

func (a mat4) bounds(b vector.Box3) vector.Box3 {
	out := vector.EmptyBox()
	for _, c := range b.Corners() {
		out = out.Expand(a.apply(c))
	}
	return out
}

// localMatrix returns the node's matrix, or composes T*R*S. Zero-valued
// fields are treated as their glTF defaults.
func localMatrix(n *gltf.Node) mat4 {
	m := n.Matrix
	if mv := toF64(m[:]); !isZero(mv) && !isIdentity(mv) {
		var out mat4
		copy(out[:], mv)
		return out
	}
	tr, rt, sc := n.Translation, n.Rotation, n.Scale
	t, q, s := toF64(tr[:]), toF64(rt[:]), toF64(sc[:])
	if isZero(s) {
		s = []float64{1, 1, 1}
	}
	if isZero(q) {
		q = []float64{0, 0, 0, 1}
	}
	x, y, z, w := q[0], q[1], q[2], q[3]
	// rotation columns from the unit quaternion, scaled per axis
	return mat4{
		(1 - 2*(y*y+z*z)) * s[0], 2 * (x*y + z*w) * s[0], 2 * (x*z - y*w) * s[0], 0,
		2 * (x*y - z*w) * s[1], (1 - 2*(x*x+z*z)) * s[1], 2 * (y*z + x*w) * s[1], 0,
		2 * (x*z + y*w) * s[2], 2 * (y*z - x*w) * s[2], (1 - 2*(x*x+y*y)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func isIdentity(v []float64) bool {
	for i, x := range v {
		if x != identity4[i] {
			return false
		}
	}
	return true
}
