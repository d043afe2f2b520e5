/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog holds the registry of placeable item templates. A Catalog is
// immutable once built and safe to share between sessions.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"layoutquote/internal/domain"
	"layoutquote/internal/vector"
)

// Kind is the closed set of item geometries.
type Kind string

const (
	KindBox          Kind = "box"
	KindSphere       Kind = "sphere"
	KindCylinder     Kind = "cylinder"
	KindDisc         Kind = "disc"
	KindExternalMesh Kind = "mesh"
)

// ParseKind accepts the canonical names and the legacy aliases found in stored
// preset tables (cube, circle, model).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box", "cube":
		return KindBox, nil
	case "sphere":
		return KindSphere, nil
	case "cylinder":
		return KindCylinder, nil
	case "disc", "circle":
		return KindDisc, nil
	case "mesh", "model":
		return KindExternalMesh, nil
	}
	return "", fmt.Errorf("unknown item kind %q: %w", s, domain.ErrInvalidInput)
}

func (k *Kind) UnmarshalText(b []byte) error {
	p, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// IsMesh reports whether items of this kind are loaded from an external model.
func (k Kind) IsMesh() bool { return k == KindExternalMesh }

// Size is a nominal footprint in millimeters.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

func (s Size) Vec3() vector.Vec3 { return vector.V(s.Width, s.Height, s.Depth) }

// Item is a placeable template. (Category, Name) identifies it.
type Item struct {
	Name      string       `json:"name" yaml:"name"`
	Category  string       `json:"category" yaml:"category"`
	Kind      Kind         `json:"type" yaml:"type"`
	Footprint Size         `json:"size" yaml:"size"`
	Color     domain.Color `json:"color" yaml:"color"`
	Fixed     bool         `json:"fixed" yaml:"fixed"`
	Price     int64        `json:"price" yaml:"price"`
	URL       string       `json:"url,omitempty" yaml:"url,omitempty"`
	Icon      string       `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Key is the composite identifier used in logs and error messages.
func (it Item) Key() string { return it.Category + "/" + it.Name }

// Validate checks the invariants a template must satisfy before it can be placed.
func (it Item) Validate() error {
	var errs []error
	if strings.TrimSpace(it.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(it.Category) == "" {
		errs = append(errs, errors.New("category is required"))
	}
	if it.Price < 0 {
		errs = append(errs, fmt.Errorf("price %d is negative", it.Price))
	}
	switch it.Kind {
	case KindBox, KindSphere, KindCylinder, KindDisc:
		f := it.Footprint
		if f.Width <= 0 || f.Height <= 0 || f.Depth <= 0 {
			errs = append(errs, fmt.Errorf("footprint %gx%gx%g must be positive", f.Width, f.Height, f.Depth))
		}
	case KindExternalMesh:
		if strings.TrimSpace(it.URL) == "" {
			errs = append(errs, errors.New("mesh item needs a url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", it.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %s: %w: %w", it.Key(), domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Catalog is a read-only registry of items.
type Catalog struct {
	items      []Item
	index      map[string]int
	categories []string
}

// New validates items and builds a catalog. Names must be unique within a category.
func New(items ...Item) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(items))}
	seenCat := map[string]bool{}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[it.Key()]; dup {
			return nil, fmt.Errorf("duplicate item %s: %w", it.Key(), domain.ErrInvalidInput)
		}
		c.index[it.Key()] = len(c.items)
		c.items = append(c.items, it)
		if !seenCat[it.Category] {
			seenCat[it.Category] = true
			c.categories = append(c.categories, it.Category)
		}
	}
	return c, nil
}

// Lookup resolves an item by category and name.
func (c *Catalog) Lookup(category, name string) (Item, error) {
	i, ok := c.index[category+"/"+name]
	if !ok {
		return Item{}, fmt.Errorf("catalog item %s/%s: %w", category, name, domain.ErrNotFound)
	}
	return c.items[i], nil
}

// ListByCategory returns the items of a category in registration order.
func (c *Catalog) ListByCategory(category string) []Item {
	var out []Item
	for _, it := range c.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Categories lists categories in first-seen order.
func (c *Catalog) Categories() []string { return append([]string(nil), c.categories...) }

// All returns every item in registration order.
func (c *Catalog) All() []Item { return append([]Item(nil), c.items...) }

func (c *Catalog) Len() int { return len(c.items) }
