/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"log/slog"

	"textfit/internal/geom"
	applog "textfit/internal/log"
)

// Fit finds the largest font size in [1, min(region height, MaxFontSize)]
// whose layout fits the region. Feasibility is assumed monotonic in size.
// Empty text yields an empty Result. If nothing fits, the size-1 layout is
// returned with Overflow set.
func Fit(text string, region geom.Rect, opts Options, m Measurer) (Result, error) {
	if err := region.Check(); err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, nil
	}
	l := applog.WithOperation(applog.WithComponent("textlayout"), "fit")

	hi := region.Height()
	if opts.MaxFontSize > 0 && opts.MaxFontSize < hi {
		hi = opts.MaxFontSize
	}
	lo := 1
	var best Result
	found := false
	trials := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		trials++
		r := LayoutAt(text, mid, region, opts, m)
		if r.FitsIn(region) {
			best, found = r, true
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if !found {
		best = LayoutAt(text, 1, region, opts, m)
		best.Overflow = true
		l.Warn("text does not fit even at size 1", slog.String("region", region.String()),
			slog.Int("lines", len(best.Lines)), slog.Int("block_w", best.BlockWidth), slog.Int("block_h", best.BlockHeight))
	}
	l.Debug("fit done", slog.Int("size", best.Size), slog.Int("lines", len(best.Lines)),
		slog.Int("trials", trials), slog.String("strategy", opts.Strategy.String()))
	return best, nil
}

// LayoutAt tokenizes, breaks and measures text at one size. It is the
// feasibility predicate of Fit.
func LayoutAt(text string, size int, region geom.Rect, opts Options, m Measurer) Result {
	maxWidth := float64(region.Width())
	paras := Paragraphs(text)
	toks := make([][]Token, len(paras))
	for i, p := range paras {
		toks[i] = Tokenize(p, size, maxWidth, m)
	}
	lines := Break(toks, opts.Strategy, size, maxWidth, m)

	ascent, descent := m.Metrics(size)
	lineH := int(float64(ascent+descent) * (1 + opts.LineSpacing))
	blockW := 0
	for _, ln := range lines {
		blockW = max(blockW, int(ln.Width))
	}
	blockH := max(lineH*max(1, len(lines)), 1)
	return Result{Size: size, Lines: lines, LineHeight: lineH, BlockWidth: blockW, BlockHeight: blockH}
}

// FitsIn reports whether the block fits the region.
func (r Result) FitsIn(region geom.Rect) bool {
	return r.BlockWidth <= region.Width() && r.BlockHeight <= region.Height()
}
