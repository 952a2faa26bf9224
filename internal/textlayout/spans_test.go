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
	"testing"
)

var (
	base      = color.NRGBA{A: 255}
	highlight = color.NRGBA{R: 128, B: 128, A: 255}
)

func TestColorSegments_BracketPersistsAcrossLines(t *testing.T) {
	segs, in := ColorSegments("ab[cd", false, base, highlight)
	if !in {
		t.Fatalf("expected open bracket at end of first line")
	}
	want := []ColorSegment{{"ab", base}, {"[", highlight}, {"cd", highlight}}
	if len(segs) != len(want) {
		t.Fatalf("got %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Fatalf("segment %d: got %v, want %v", i, segs[i], want[i])
		}
	}

	segs, in = ColorSegments("ef]gh", in, base, highlight)
	if in {
		t.Fatalf("expected bracket closed at end of second line")
	}
	want = []ColorSegment{{"ef", highlight}, {"]", highlight}, {"gh", base}}
	for i := range want {
		if segs[i] != want[i] {
			t.Fatalf("segment %d: got %v, want %v", i, segs[i], want[i])
		}
	}
}

func TestColorSegments_FullwidthBrackets(t *testing.T) {
	segs, in := ColorSegments("说【重点】了", false, base, highlight)
	if in || len(segs) != 5 {
		t.Fatalf("unexpected segments %v (in=%v)", segs, in)
	}
	if segs[2].Text != "重点" || segs[2].Color != color.Color(highlight) || segs[4].Color != color.Color(base) {
		t.Fatalf("unexpected coloring %v", segs)
	}
}

func TestFontRuns(t *testing.T) {
	runs := FontRuns("hello\U0001F600你", true)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %v", runs)
	}
	if runs[0].Variant != VariantNormal || runs[1].Variant != VariantEmoji || runs[2].Variant != VariantNormal {
		t.Fatalf("unexpected variants %v", runs)
	}
	if runs[1].Text != "\U0001F600" {
		t.Fatalf("unexpected emoji run %q", runs[1].Text)
	}

	// every joined part must be emoji
	runs = FontRuns("\U0001F468\u200d\U0001F469", true)
	if len(runs) != 1 || runs[0].Variant != VariantEmoji {
		t.Fatalf("zwj family should be emoji: %v", runs)
	}
	runs = FontRuns("a\u200d\U0001F600", true)
	if len(runs) != 1 || runs[0].Variant != VariantNormal {
		t.Fatalf("mixed zwj cluster should be normal: %v", runs)
	}

	runs = FontRuns("hi\U0001F600", false)
	if len(runs) != 1 || runs[0].Variant != VariantNormal {
		t.Fatalf("disabled classification should yield one normal run: %v", runs)
	}
}

func TestPartition_CoverageAndCuts(t *testing.T) {
	lines := []Line{{Text: "say [hi\U0001F600"}, {Text: "there] \U0001F44D\U0001F3FD ok"}, {Text: ""}}
	opts := DefaultOptions()
	opts.Color, opts.Highlight = base, highlight
	units := Partition(lines, opts)
	if len(units) != len(lines) {
		t.Fatalf("expected %d lines of units, got %d", len(lines), len(units))
	}
	for i, ln := range lines {
		var b strings.Builder
		for _, u := range units[i] {
			if u.Text == "" {
				t.Fatalf("line %d: empty unit", i)
			}
			b.WriteString(u.Text)
		}
		if b.String() != ln.Text {
			t.Fatalf("line %d: units %q do not cover %q", i, b.String(), ln.Text)
		}
	}

	// "say " | "[" | "hi" | emoji, the emoji inherits the open bracket
	first := units[0]
	if len(first) != 4 || first[3].Variant != VariantEmoji || first[3].Color != color.Color(highlight) {
		t.Fatalf("unexpected first line units %+v", first)
	}
	// "there" starts highlighted from the previous line
	second := units[1]
	if second[0].Text != "there" || second[0].Color != color.Color(highlight) {
		t.Fatalf("bracket state not carried: %+v", second[0])
	}
	last := second[len(second)-1]
	if last.Text != " ok" || last.Color != color.Color(base) || last.Variant != VariantNormal {
		t.Fatalf("unexpected tail unit %+v", last)
	}
	if len(units[2]) != 0 {
		t.Fatalf("empty line should have no units")
	}
}

func TestIntersect_CutsAtBothBoundaries(t *testing.T) {
	segs := []ColorSegment{{"ab", base}, {"cd", highlight}}
	runs := []FontRun{{"a", VariantNormal}, {"bcd", VariantEmoji}}
	units := Intersect(segs, runs)
	want := []string{"a", "b", "cd"}
	if len(units) != len(want) {
		t.Fatalf("got %+v", units)
	}
	for i, w := range want {
		if units[i].Text != w {
			t.Fatalf("unit %d: got %q, want %q", i, units[i].Text, w)
		}
	}
	if units[1].Color != color.Color(base) || units[1].Variant != VariantEmoji {
		t.Fatalf("unexpected unit %+v", units[1])
	}
}
