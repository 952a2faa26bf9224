/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image/color"
	"strings"
)

// Variant selects the face a run is drawn with.
type Variant int

const (
	VariantNormal Variant = iota
	VariantEmoji
)

func (v Variant) String() string {
	if v == VariantEmoji {
		return "emoji"
	}
	return "normal"
}

// ColorSegment is a run of one line drawn in a single color.
type ColorSegment struct {
	Text  string
	Color color.Color
}

// FontRun is a run of one line drawn with a single face variant.
type FontRun struct {
	Text    string
	Variant Variant
}

// DrawUnit is a piece of a line with constant color and face variant.
type DrawUnit struct {
	Text    string
	Color   color.Color
	Variant Variant
}

// ColorSegments colors one line. Delimiters are always highlighted; text
// between them is highlighted while inBracket holds. The returned state is
// the bracket state at the end of the line.
func ColorSegments(line string, inBracket bool, base, highlight color.Color) ([]ColorSegment, bool) {
	var segs []ColorSegment
	var buf strings.Builder
	current := func() color.Color {
		if inBracket {
			return highlight
		}
		return base
	}
	for _, r := range line {
		switch {
		case isOpener(r):
			if buf.Len() > 0 {
				segs = append(segs, ColorSegment{Text: buf.String(), Color: current()})
				buf.Reset()
			}
			segs = append(segs, ColorSegment{Text: string(r), Color: highlight})
			inBracket = true
		case isCloser(r):
			if buf.Len() > 0 {
				segs = append(segs, ColorSegment{Text: buf.String(), Color: highlight})
				buf.Reset()
			}
			segs = append(segs, ColorSegment{Text: string(r), Color: highlight})
			inBracket = false
		default:
			buf.WriteRune(r)
		}
	}
	if buf.Len() > 0 {
		segs = append(segs, ColorSegment{Text: buf.String(), Color: current()})
	}
	return segs, inBracket
}

// FontRuns groups the clusters of line into maximal runs of one variant.
// With emoji classification disabled the whole line is one normal run.
func FontRuns(line string, emoji bool) []FontRun {
	if line == "" {
		return nil
	}
	if !emoji {
		return []FontRun{{Text: line, Variant: VariantNormal}}
	}
	var runs []FontRun
	for _, cl := range clusters(line) {
		v := VariantNormal
		if isEmojiCluster(cl) {
			v = VariantEmoji
		}
		if n := len(runs); n > 0 && runs[n-1].Variant == v {
			runs[n-1].Text += cl
			continue
		}
		runs = append(runs, FontRun{Text: cl, Variant: v})
	}
	return runs
}

// Intersect cuts the line at every boundary of either sequence. Both must
// cover the same text.
func Intersect(segs []ColorSegment, runs []FontRun) []DrawUnit {
	var units []DrawUnit
	si, ri := 0, 0
	var sRest, rRest string
	if len(segs) > 0 {
		sRest = segs[0].Text
	}
	if len(runs) > 0 {
		rRest = runs[0].Text
	}
	for si < len(segs) && ri < len(runs) {
		n := min(len(sRest), len(rRest))
		if n > 0 {
			units = append(units, DrawUnit{Text: sRest[:n], Color: segs[si].Color, Variant: runs[ri].Variant})
		}
		sRest, rRest = sRest[n:], rRest[n:]
		if sRest == "" {
			si++
			if si < len(segs) {
				sRest = segs[si].Text
			}
		}
		if rRest == "" {
			ri++
			if ri < len(runs) {
				rRest = runs[ri].Text
			}
		}
	}
	return units
}

// Partition splits every line into draw units, carrying the bracket state
// from one line to the next.
func Partition(lines []Line, opts Options) [][]DrawUnit {
	out := make([][]DrawUnit, len(lines))
	inBracket := false
	for i, ln := range lines {
		var segs []ColorSegment
		segs, inBracket = ColorSegments(ln.Text, inBracket, opts.Color, opts.Highlight)
		out[i] = Intersect(segs, FontRuns(ln.Text, opts.EmojiRuns))
	}
	return out
}
