/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pricing derives quotes from a scene. Everything here is a pure
// function of the scene passed in; nothing is cached.
package pricing

import (
	"layoutquote/internal/scene"
	"layoutquote/internal/vector"
)

// Subtotal is the sum for one category.
type Subtotal struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// Line is one priced instance.
type Line struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    int64       `json:"price"`
	Position vector.Vec3 `json:"position"`
}

// Quote is the derived price summary of a scene.
type Quote struct {
	Total      int64      `json:"total"`
	Categories []Subtotal `json:"categories"`
	Lines      []Line     `json:"lines"`
}

// Total sums the unit price over all placed instances. Pending placements are not priced.
func Total(s *scene.Scene) int64 {
	var t int64
	for _, in := range s.Instances() {
		t += in.Item.Price
	}
	return t
}

// ByCategory sums prices per category.
func ByCategory(s *scene.Scene) map[string]int64 {
	out := map[string]int64{}
	for _, in := range s.Instances() {
		out[in.Item.Category] += in.Item.Price
	}
	return out
}

// Compute builds a full quote with categories in first-seen order.
func Compute(s *scene.Scene) Quote {
	q := Quote{Categories: []Subtotal{}, Lines: []Line{}}
	idx := map[string]int{}
	for _, in := range s.Instances() {
		p := in.Item.Price
		q.Total += p
		i, ok := idx[in.Item.Category]
		if !ok {
			i = len(q.Categories)
			idx[in.Item.Category] = i
			q.Categories = append(q.Categories, Subtotal{Category: in.Item.Category})
		}
		q.Categories[i].Amount += p
		q.Lines = append(q.Lines, Line{Name: in.Item.Name, Category: in.Item.Category, Price: p, Position: in.Position})
	}
	return q
}

// Subtotal returns the amount for a category, zero when absent.
func (q Quote) Subtotal(category string) int64 {
	for _, c := range q.Categories {
		if c.Category == category {
			return c.Amount
		}
	}
	return 0
}
