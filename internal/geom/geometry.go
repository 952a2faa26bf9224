/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the integer pixel geometry shared by text and image fitting:
// target rectangles, alignment enums and the contain-fit transform.
package geom

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrInvalidRegion is returned for empty or inverted rectangles.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrInvalidContent is returned when content dimensions are not positive.
	ErrInvalidContent = errors.New("invalid content size")
)

// Rect is an axis-aligned pixel rectangle given by its top-left (X1,Y1)
// and bottom-right (X2,Y2) corners. X2/Y2 are exclusive.
type Rect struct {
	X1, Y1 int
	X2, Y2 int
}

// R builds a Rect from two corners.
func R(x1, y1, x2, y2 int) Rect { return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2} }

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Valid reports whether the rectangle has positive width and height.
func (r Rect) Valid() bool { return r.X2 > r.X1 && r.Y2 > r.Y1 }

// Check returns ErrInvalidRegion (wrapped with the coordinates) for invalid rectangles.
func (r Rect) Check() error {
	if !r.Valid() {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrInvalidRegion, r.X1, r.Y1, r.X2, r.Y2)
	}
	return nil
}

// Inset shrinks the rectangle by p on all sides (negative grows).
func (r Rect) Inset(p int) Rect {
	return Rect{X1: r.X1 + p, Y1: r.Y1 + p, X2: r.X2 - p, Y2: r.Y2 - p}
}

// Image converts to an image.Rectangle.
func (r Rect) Image() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Align is the horizontal placement inside a region.
type Align int

const (
	AlignCenter Align = iota
	AlignLeft
	AlignRight
)

// VAlign is the vertical placement inside a region.
type VAlign int

const (
	VAlignMiddle VAlign = iota
	VAlignTop
	VAlignBottom
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	default:
		return "center"
	}
}

func (v VAlign) String() string {
	switch v {
	case VAlignTop:
		return "top"
	case VAlignBottom:
		return "bottom"
	default:
		return "middle"
	}
}

// ParseAlign maps "left", "center" or "right" (case-insensitive) to an Align.
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return AlignLeft, nil
	case "center", "centre", "":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignCenter, fmt.Errorf("unknown align %q", s)
}

// ParseVAlign maps "top", "middle" or "bottom" (case-insensitive) to a VAlign.
func ParseVAlign(s string) (VAlign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return VAlignTop, nil
	case "middle", "center", "":
		return VAlignMiddle, nil
	case "bottom":
		return VAlignBottom, nil
	}
	return VAlignMiddle, fmt.Errorf("unknown valign %q", s)
}

// PlaceX returns the left edge of a span of width w placed in [left, left+avail).
func (a Align) PlaceX(left, avail, w int) int {
	switch a {
	case AlignLeft:
		return left
	case AlignRight:
		return left + avail - w
	default:
		return left + FloorDiv(avail-w, 2)
	}
}

// PlaceY is the vertical counterpart of PlaceX.
func (v VAlign) PlaceY(top, avail, h int) int {
	switch v {
	case VAlignTop:
		return top
	case VAlignBottom:
		return top + avail - h
	default:
		return top + FloorDiv(avail-h, 2)
	}
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
