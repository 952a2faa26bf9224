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
	"math"
	"strings"

	applog "textfit/internal/log"
)

// item is a content token with the whitespace that preceded it. The lead is
// kept between items on the same line and dropped at a line start.
type item struct {
	lead string
	text string
}

func glue(tokens []Token) []item {
	var out []item
	var lead strings.Builder
	for _, t := range tokens {
		if t.Kind == KindSpace {
			lead.WriteString(t.Text)
			continue
		}
		out = append(out, item{lead: lead.String(), text: t.Text})
		lead.Reset()
	}
	return out
}

// Break turns tokenized paragraphs into lines with the selected strategy.
// An empty paragraph yields one empty line unless the previous line is
// already empty. Non-empty input always yields at least one line.
func Break(paras [][]Token, strategy Strategy, size int, maxWidth float64, m Measurer) []Line {
	var texts []string
	for pi, toks := range paras {
		if len(toks) == 0 {
			if len(texts) == 0 || texts[len(texts)-1] != "" {
				texts = append(texts, "")
			}
			continue
		}
		items := glue(toks)
		switch strategy {
		case StrategyDP:
			lines, ok := breakDP(items, size, maxWidth, m, pi == len(paras)-1)
			if !ok {
				applog.WithComponent("textlayout").Debug("dp wrap infeasible, falling back to greedy",
					slog.Int("size", size), slog.Int("paragraph", pi))
				lines = breakGreedy(items, size, maxWidth, m)
			}
			texts = append(texts, lines...)
		default:
			texts = append(texts, breakGreedy(items, size, maxWidth, m)...)
		}
	}
	if len(texts) == 0 && len(paras) > 0 {
		texts = []string{""}
	}
	lines := make([]Line, len(texts))
	for i, t := range texts {
		lines[i] = Line{Text: t, Width: m.Advance(size, t)}
	}
	return lines
}

// breakGreedy fills each line with as many items as fit. An item that is too
// wide on its own still gets its own line.
func breakGreedy(items []item, size int, maxWidth float64, m Measurer) []string {
	var lines []string
	buf := ""
	for _, it := range items {
		if buf == "" {
			buf = it.text
			continue
		}
		trial := buf + it.lead + it.text
		if m.Advance(size, trial) <= maxWidth {
			buf = trial
			continue
		}
		lines = append(lines, buf)
		buf = it.text
	}
	if buf != "" {
		lines = append(lines, buf)
	}
	return lines
}

// breakDP minimizes the sum of squared slack over all lines. The last line is
// free when lastFree is set. It reports false when no partition keeps every
// line within maxWidth.
func breakDP(items []item, size int, maxWidth float64, m Measurer, lastFree bool) ([]string, bool) {
	n := len(items)
	if n == 0 {
		return nil, false
	}
	gap := make([]float64, n)
	prefix := make([]float64, n+1)
	for k, it := range items {
		if k > 0 {
			gap[k] = m.Advance(size, it.lead)
		}
		prefix[k+1] = prefix[k] + gap[k] + m.Advance(size, it.text)
	}
	// width of items[j:i] on one line; the lead of items[j] is dropped
	width := func(j, i int) float64 { return prefix[i] - prefix[j] - gap[j] }

	cost := make([]float64, n+1)
	from := make([]int, n+1)
	for i := 1; i <= n; i++ {
		cost[i] = math.Inf(1)
		from[i] = -1
		for j := i - 1; j >= 0; j-- {
			w := width(j, i)
			if w > maxWidth {
				break
			}
			if math.IsInf(cost[j], 1) {
				continue
			}
			bad := 0.0
			if !(lastFree && i == n) {
				slack := maxWidth - w
				bad = slack * slack
			}
			if c := cost[j] + bad; c < cost[i] {
				cost[i] = c
				from[i] = j
			}
		}
	}
	if from[n] < 0 {
		return nil, false
	}

	var lines []string
	for i := n; i > 0; i = from[i] {
		j := from[i]
		var b strings.Builder
		b.WriteString(items[j].text)
		for _, it := range items[j+1 : i] {
			b.WriteString(it.lead)
			b.WriteString(it.text)
		}
		lines = append(lines, b.String())
	}
	for l, r := 0, len(lines)-1; l < r; l, r = l+1, r-1 {
		lines[l], lines[r] = lines[r], lines[l]
	}
	return lines, true
}

// Badness is the DP objective for a finished set of lines: squared slack of
// every line except the last.
func Badness(lines []Line, maxWidth float64) float64 {
	var sum float64
	for i, ln := range lines {
		if i == len(lines)-1 {
			break
		}
		slack := maxWidth - ln.Width
		sum += slack * slack
	}
	return sum
}
