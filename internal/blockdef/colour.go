/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package blockdef

import (
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	// DefaultColour fills blocks whose definition has no colour.
	DefaultColour = color.RGBA{R: 80, G: 160, B: 240, A: 255}
	// FallbackColour fills blocks whose colour cannot be decoded.
	FallbackColour = color.RGBA{R: 160, G: 160, B: 160, A: 255}
)

// ColourOf returns DefaultColour for an absent colour and decodes any
// present one, empty strings included, with ParseColour.
func ColourOf(s *string) color.RGBA {
	if s == nil {
		return DefaultColour
	}
	return ParseColour(*s)
}

// ParseColour decodes a "#rrggbb" or "rrggbb" string. Anything else,
// including the empty string, yields FallbackColour.
func ParseColour(s string) color.RGBA {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return FallbackColour
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return FallbackColour
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
