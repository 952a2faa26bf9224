/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout fits a block of text into a fixed pixel region.
//
// The pipeline is: split into paragraphs, tokenize each paragraph at a trial
// size, break tokens into lines (greedy or cost-minimizing), measure the block,
// and binary-search the largest size whose block fits. The chosen lines are
// then partitioned into draw units by highlight color and font variant.
//
// All measurement goes through the Measurer interface so that layout is
// deterministic and testable without real fonts.
package textlayout

import (
	"fmt"
	"image/color"
	"strings"

	"textfit/internal/geom"
)

// Measurer is the measurement oracle used by every layout step.
// Implementations must be deterministic for fixed (size, text).
type Measurer interface {
	// Advance returns the rendered width of text at the given pixel size.
	Advance(size int, text string) float64
	// Metrics returns the font ascent and descent in pixels at the given size.
	Metrics(size int) (ascent, descent int)
}

// Strategy selects the line-breaking algorithm.
type Strategy int

const (
	StrategyGreedy Strategy = iota
	StrategyDP
)

func (s Strategy) String() string {
	if s == StrategyDP {
		return "dp"
	}
	return "greedy"
}

// ParseStrategy accepts "greedy"/"dp" and the legacy names "original"/"knuth_plass".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "greedy", "original", "":
		return StrategyGreedy, nil
	case "dp", "knuth_plass", "optimal":
		return StrategyDP, nil
	}
	return StrategyGreedy, fmt.Errorf("unknown wrap strategy %q", s)
}

// Options controls text fitting and coloring.
// LineSpacing is a fraction of the font height added between lines (0.15 = 15%).
// MaxFontSize caps the search when > 0.
type Options struct {
	Color       color.Color
	Highlight   color.Color
	Align       geom.Align
	VAlign      geom.VAlign
	LineSpacing float64
	MaxFontSize int
	Strategy    Strategy
	EmojiRuns   bool
}

// DefaultOptions mirrors the defaults of the dialog renderer: black text,
// purple highlight, centered, 15% line spacing.
func DefaultOptions() Options {
	return Options{
		Color:       color.NRGBA{A: 255},
		Highlight:   color.NRGBA{R: 128, B: 128, A: 255},
		Align:       geom.AlignCenter,
		VAlign:      geom.VAlignMiddle,
		LineSpacing: 0.15,
		Strategy:    StrategyGreedy,
		EmojiRuns:   true,
	}
}

// Line is one laid out line and its measured width.
type Line struct {
	Text  string
	Width float64
}

// Result is the chosen layout for a region.
// Overflow is set when even size 1 does not fit; the size-1 layout is
// returned anyway.
type Result struct {
	Size        int
	Lines       []Line
	LineHeight  int
	BlockWidth  int
	BlockHeight int
	Overflow    bool
}

// Empty reports whether there is nothing to draw.
func (r Result) Empty() bool { return len(r.Lines) == 0 }

// Texts returns the line strings.
func (r Result) Texts() []string {
	out := make([]string, len(r.Lines))
	for i, ln := range r.Lines {
		out[i] = ln.Text
	}
	return out
}
