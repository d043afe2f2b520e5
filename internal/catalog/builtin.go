/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import "layoutquote/internal/domain"

// Category names of the built-in presets.
const (
	CategoryDesign  = "디자인물"
	CategoryFixture = "집기"
)

const modelBaseURL = "https://stjvvbquddmfpuerjkxd.supabase.co/storage/v1/object/public/models//"

var accent = domain.MustColor("#3399ff")

// BuiltinItems returns the default preset list.
func BuiltinItems() []Item {
	cube := Size{Width: 100, Height: 100, Depth: 100}
	return []Item{
		{Name: "구", Category: CategoryDesign, Kind: KindSphere, Footprint: cube, Color: accent, Price: 10000, Icon: "⚪"},
		{Name: "원기둥", Category: CategoryDesign, Kind: KindCylinder, Footprint: cube, Color: accent, Price: 8000, Icon: "🔲"},
		{Name: "상자", Category: CategoryDesign, Kind: KindBox, Footprint: cube, Color: accent, Price: 7000, Icon: "⬛"},
		{Name: "원", Category: CategoryDesign, Kind: KindDisc, Footprint: Size{Width: 100, Height: 10, Depth: 100}, Color: accent, Price: 5000, Icon: "⭕"},
		{Name: "1200 모델", Category: CategoryFixture, Kind: KindExternalMesh, Color: domain.White, Fixed: true, Price: 150000, URL: modelBaseURL + "1200.glb"},
		{Name: "1500 모델", Category: CategoryFixture, Kind: KindExternalMesh, Color: domain.White, Fixed: true, Price: 180000, URL: modelBaseURL + "1500.glb"},
	}
}

// Builtin returns the default catalog.
func Builtin() *Catalog {
	c, err := New(BuiltinItems()...)
	if err != nil {
		panic(err)
	}
	return c
}
