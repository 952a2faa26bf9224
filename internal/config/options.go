/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"textfit/internal/geom"
	"textfit/internal/textlayout"
)

// ParseHexColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: want #RGB, #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// TextRegion is the configured box as a rectangle.
func (c AppConfig) TextRegion() (geom.Rect, error) {
	r := geom.Rect{X1: c.Box.TopLeft[0], Y1: c.Box.TopLeft[1], X2: c.Box.BottomRight[0], Y2: c.Box.BottomRight[1]}
	return r, r.Check()
}

// TextOptions converts the text section into layout options.
func (c AppConfig) TextOptions() (textlayout.Options, error) {
	t := c.Text
	opts := textlayout.DefaultOptions()
	fg, err := ParseHexColor(t.Color)
	if err != nil {
		return opts, fmt.Errorf("text.color: %w", err)
	}
	hl, err := ParseHexColor(t.Highlight)
	if err != nil {
		return opts, fmt.Errorf("text.highlight: %w", err)
	}
	if opts.Align, err = geom.ParseAlign(t.Align); err != nil {
		return opts, fmt.Errorf("text.align: %w", err)
	}
	if opts.VAlign, err = geom.ParseVAlign(t.VAlign); err != nil {
		return opts, fmt.Errorf("text.valign: %w", err)
	}
	if opts.Strategy, err = textlayout.ParseStrategy(t.WrapAlgorithm); err != nil {
		return opts, fmt.Errorf("text.wrap_algorithm: %w", err)
	}
	opts.Color, opts.Highlight = fg, hl
	opts.LineSpacing = max(t.LineSpacing, 0)
	opts.MaxFontSize = t.MaxFontSize
	opts.EmojiRuns = t.EmojiRuns
	return opts, nil
}

// FitOptions converts the image section into region-fit options.
func (c AppConfig) FitOptions() (geom.FitOptions, error) {
	im := c.Image
	opts := geom.FitOptions{Padding: max(im.Padding, 0), AllowUpscale: im.AllowUpscale}
	var err error
	if opts.Align, err = geom.ParseAlign(im.Align); err != nil {
		return opts, fmt.Errorf("image.align: %w", err)
	}
	if opts.VAlign, err = geom.ParseVAlign(im.VAlign); err != nil {
		return opts, fmt.Errorf("image.valign: %w", err)
	}
	return opts, nil
}

// OverlayPath returns the overlay to draw, or "" when overlays are off.
func (c AppConfig) OverlayPath() string {
	if !c.Base.UseOverlay {
		return ""
	}
	return c.Base.Overlay
}
