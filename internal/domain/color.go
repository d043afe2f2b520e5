/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is an opaque sRGB color, serialized as "#rrggbb".
type Color struct{ R, G, B uint8 }

// White is the neutral color used for external meshes that keep their own materials.
var White = Color{0xff, 0xff, 0xff}

// ParseColor accepts "#rrggbb", "rrggbb" and the short "#rgb" form.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("color %q: %w", s, ErrInvalidInput)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, ErrInvalidInput)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustColor is ParseColor for literals.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) String() string { return c.Hex() }

// NRGBA converts to the image/color model used by the exporters and the UI.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff} }

func (c Color) MarshalJSON() ([]byte, error) { return json.Marshal(c.Hex()) }

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	p, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = p
	return nil
}

func (c Color) MarshalYAML() (any, error) { return c.Hex(), nil }

// UnmarshalText lets yaml.v3 and flag-style parsers read hex colors.
func (c *Color) UnmarshalText(b []byte) error {
	p, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}
