/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Character classification shared by the tokenizer and the span partitioner.

import (
	"strings"
	"unicode"

	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/width"
)

const zwj = '\u200d'

// emojiTable covers the standard emoji blocks: misc symbols, dingbats,
// regional indicators, misc symbols & pictographs, emoticons, transport & map,
// supplemental symbols & pictographs and symbols & pictographs extended-A.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26ff, Stride: 1},
		{Lo: 0x2700, Hi: 0x27bf, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f1e6, Hi: 0x1f1ff, Stride: 1},
		{Lo: 0x1f300, Hi: 0x1f5ff, Stride: 1},
		{Lo: 0x1f600, Hi: 0x1f64f, Stride: 1},
		{Lo: 0x1f680, Hi: 0x1f6ff, Stride: 1},
		{Lo: 0x1f900, Hi: 0x1f9ff, Stride: 1},
		{Lo: 0x1fa70, Hi: 0x1faff, Stride: 1},
	},
}

func isEmoji(r rune) bool { return unicode.Is(emojiTable, r) }

func isOpener(r rune) bool { return r == '[' || r == '【' }
func isCloser(r rune) bool { return r == ']' || r == '】' }

func isWide(r rune) bool {
	k := width.LookupRune(r).Kind()
	return k == width.EastAsianWide || k == width.EastAsianFullwidth
}

// isCJK reports ideographs, kana, hangul and fullwidth letters/digits:
// characters that break individually.
func isCJK(r rune) bool {
	if isEmoji(r) {
		return false
	}
	if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
		return true
	}
	return isWide(r) && (unicode.IsLetter(r) || unicode.IsNumber(r))
}

// isWidePunct reports CJK punctuation and fullwidth symbols.
func isWidePunct(r rune) bool {
	if isEmoji(r) {
		return false
	}
	return isWide(r) && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}

func isPunctOrSymbol(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return s != ""
}

// graphemeStarts marks the indexes of rs that begin an extended grapheme
// cluster. The slot at len(rs) is always set.
func graphemeStarts(rs []rune) []bool {
	starts := make([]bool, len(rs)+1)
	var seg segmenter.Segmenter
	seg.Init(rs)
	for it := seg.GraphemeIterator(); it.Next(); {
		starts[it.Grapheme().Offset] = true
	}
	starts[len(rs)] = true
	return starts
}

// clusters splits s into extended grapheme clusters (UAX #29).
func clusters(s string) []string {
	var seg segmenter.Segmenter
	seg.Init([]rune(s))
	var out []string
	for it := seg.GraphemeIterator(); it.Next(); {
		out = append(out, string(it.Grapheme().Text))
	}
	return out
}

// isEmojiCluster reports whether every ZWJ-joined part of cl starts with an
// emoji rune.
func isEmojiCluster(cl string) bool {
	parts := 0
	for _, part := range strings.Split(cl, string(zwj)) {
		if part == "" {
			continue
		}
		parts++
		var first rune
		for _, r := range part {
			first = r
			break
		}
		if !isEmoji(first) {
			return false
		}
	}
	return parts > 0
}
