/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"fmt"
	"math"
)

// FitOptions controls Contain.
// Padding is applied on all four sides of the destination before fitting.
// Without AllowUpscale the content is only ever shrunk.
type FitOptions struct {
	Padding      int
	AllowUpscale bool
	Align        Align
	VAlign       VAlign
}

// FitTransform is the scale and destination box for a contained image.
type FitTransform struct {
	Scale float64
	X, Y  int
	W, H  int
}

// Rect returns the destination box.
func (t FitTransform) Rect() Rect { return Rect{X1: t.X, Y1: t.Y, X2: t.X + t.W, Y2: t.Y + t.H} }

// Contain scales a cw x ch content box to fit inside dst (aspect preserved) and
// places it according to the alignment options.
func Contain(cw, ch int, dst Rect, opts FitOptions) (FitTransform, error) {
	if err := dst.Check(); err != nil {
		return FitTransform{}, err
	}
	if cw <= 0 || ch <= 0 {
		return FitTransform{}, fmt.Errorf("%w: %dx%d", ErrInvalidContent, cw, ch)
	}
	p := opts.Padding
	uw := max(1, dst.Width()-2*p)
	uh := max(1, dst.Height()-2*p)

	scale := math.Min(float64(uw)/float64(cw), float64(uh)/float64(ch))
	if !opts.AllowUpscale {
		scale = math.Min(1.0, scale)
	}
	w := max(1, int(math.RoundToEven(float64(cw)*scale)))
	h := max(1, int(math.RoundToEven(float64(ch)*scale)))

	var x, y int
	switch opts.Align {
	case AlignLeft:
		x = dst.X1 + p
	case AlignRight:
		x = dst.X2 - p - w
	default:
		x = dst.X1 + p + FloorDiv(uw-w, 2)
	}
	switch opts.VAlign {
	case VAlignTop:
		y = dst.Y1 + p
	case VAlignBottom:
		y = dst.Y2 - p - h
	default:
		y = dst.Y1 + p + FloorDiv(uh-h, 2)
	}
	return FitTransform{Scale: scale, X: x, Y: y, W: w, H: h}, nil
}
