/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a token for line breaking.
type TokenKind int

const (
	KindWord TokenKind = iota
	KindCJK
	KindPunct
	KindSpace
	KindBracketOpen  // opener without a matching closer
	KindBracketClose // closer without an opener
	KindBracketSpan  // opener..closer kept together
)

func (k TokenKind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindCJK:
		return "cjk"
	case KindPunct:
		return "punct"
	case KindSpace:
		return "space"
	case KindBracketOpen:
		return "bracket-open"
	case KindBracketClose:
		return "bracket-close"
	case KindBracketSpan:
		return "bracket-span"
	}
	return "unknown"
}

// Token is an unbreakable unit at one trial size.
type Token struct {
	Text string
	Kind TokenKind
}

var paragraphBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\u2028", "\n", "\u2029", "\n")

// Paragraphs splits text at hard line breaks. A trailing break does not
// start a new paragraph; empty text yields a single empty paragraph.
func Paragraphs(text string) []string {
	t := paragraphBreaks.Replace(text)
	if t == "" {
		return []string{""}
	}
	return strings.Split(strings.TrimSuffix(t, "\n"), "\n")
}

// Tokenize splits one paragraph into tokens and re-splits every token that is
// wider than maxWidth at the given size.
func Tokenize(para string, size int, maxWidth float64, m Measurer) []Token {
	var out []Token
	for _, tok := range scan(para) {
		out = append(out, fitToken(tok, size, maxWidth, m)...)
	}
	return out
}

// scan performs the size-independent part of tokenization.
func scan(para string) []Token {
	rs := []rune(para)
	var out []Token
	emit := func(k TokenKind, from, to int) {
		out = append(out, Token{Text: string(rs[from:to]), Kind: k})
	}
	starts := graphemeStarts(rs)
	// extend to the end of the current grapheme cluster
	tail := func(j int) int {
		for j < len(rs) && !starts[j] {
			j++
		}
		return j
	}
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case isOpener(r):
			j := i + 1
			for j < len(rs) && !isCloser(rs[j]) {
				j++
			}
			if j < len(rs) {
				emit(KindBracketSpan, i, j+1)
				i = j + 1
			} else {
				emit(KindBracketOpen, i, i+1)
				i++
			}
		case isCloser(r):
			emit(KindBracketClose, i, i+1)
			i++
		case unicode.IsSpace(r):
			j := i + 1
			for j < len(rs) && unicode.IsSpace(rs[j]) {
				j++
			}
			emit(KindSpace, i, j)
			i = j
		case isCJK(r):
			j := tail(i + 1)
			emit(KindCJK, i, j)
			i = j
		case isWidePunct(r):
			j := tail(i + 1)
			emit(KindPunct, i, j)
			i = j
		default:
			j := i + 1
			for j < len(rs) && !wordBoundary(rs[j]) {
				j++
			}
			k := KindWord
			if isPunctOrSymbol(string(rs[i:j])) {
				k = KindPunct
			}
			emit(k, i, j)
			i = j
		}
	}
	return out
}

func wordBoundary(r rune) bool {
	return isOpener(r) || isCloser(r) || unicode.IsSpace(r) || isCJK(r) || isWidePunct(r)
}

// fitToken returns tok unchanged when it fits, otherwise its chunks. A bracket
// span with interior whitespace is first cut into words.
func fitToken(tok Token, size int, maxWidth float64, m Measurer) []Token {
	if tok.Kind == KindSpace || m.Advance(size, tok.Text) <= maxWidth {
		return []Token{tok}
	}
	if tok.Kind == KindBracketSpan {
		if words := splitSpaces(tok); len(words) > 1 {
			var out []Token
			for _, w := range words {
				out = append(out, fitToken(w, size, maxWidth, m)...)
			}
			return out
		}
	}
	cl := clusters(tok.Text)
	if len(cl) <= 1 {
		// a single glyph wider than the line; emitted as is
		return []Token{tok}
	}
	fits := func(parts []string) bool { return m.Advance(size, strings.Join(parts, "")) <= maxWidth }
	groups := splitClusters(cl, fits)
	if tok.Kind == KindBracketSpan && endsWithCloser(tok.Text) {
		groups = keepCloserAttached(groups, fits)
	}
	out := make([]Token, len(groups))
	for i, g := range groups {
		out[i] = Token{Text: strings.Join(g, ""), Kind: tok.Kind}
	}
	return out
}

// splitSpaces cuts a bracket span at its interior whitespace. The opener stays
// on the first word and the closer on the last.
func splitSpaces(tok Token) []Token {
	rs := []rune(tok.Text)
	var out []Token
	for i := 0; i < len(rs); {
		sp := unicode.IsSpace(rs[i])
		j := i + 1
		for j < len(rs) && unicode.IsSpace(rs[j]) == sp {
			j++
		}
		k := tok.Kind
		if sp {
			k = KindSpace
		}
		out = append(out, Token{Text: string(rs[i:j]), Kind: k})
		i = j
	}
	return out
}

func endsWithCloser(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isCloser(r)
}

// splitClusters takes the longest fitting prefix (at least one cluster) and
// recurses on the remainder. Depth is bounded by len(cl).
func splitClusters(cl []string, fits func([]string) bool) [][]string {
	if len(cl) == 0 {
		return nil
	}
	n := 1
	for n < len(cl) && fits(cl[:n+1]) {
		n++
	}
	return append([][]string{cl[:n]}, splitClusters(cl[n:], fits)...)
}

// keepCloserAttached moves the last interior cluster onto a closing delimiter
// that would otherwise form a chunk on its own. The opener is always the head
// of the first chunk.
func keepCloserAttached(groups [][]string, fits func([]string) bool) [][]string {
	n := len(groups)
	if n < 2 || len(groups[n-1]) != 1 {
		return groups
	}
	prev := groups[n-2]
	minKeep := 1
	if n-2 == 0 {
		minKeep = 2 // keep opener with at least one interior cluster
	}
	if len(prev) <= minKeep {
		return groups
	}
	moved := append([]string{prev[len(prev)-1]}, groups[n-1]...)
	if !fits(moved) {
		return groups
	}
	out := append([][]string{}, groups[:n-2]...)
	return append(out, prev[:len(prev)-1], moved)
}
