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
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	applog "textfit/internal/log"
)

// KeywordImage maps a keyword to a base image path.
type KeywordImage struct {
	Keyword string
	Image   string
}

// KeywordMap is an ordered keyword mapping. In YAML it is written as a plain
// mapping; file order decides which keyword wins when several match.
type KeywordMap []KeywordImage

func (m *KeywordMap) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: base.mapping must be a mapping of keyword to image", n.Line)
	}
	out := make(KeywordMap, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: image for %q must be a string", v.Line, k.Value)
		}
		out = append(out, KeywordImage{Keyword: k.Value, Image: v.Value})
	}
	*m = out
	return nil
}

func (m KeywordMap) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Keyword},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Image},
		)
	}
	return n, nil
}

// Match returns the first entry whose keyword occurs in text.
func (m KeywordMap) Match(text string) (KeywordImage, bool) {
	for _, e := range m {
		if e.Keyword != "" && strings.Contains(text, e.Keyword) {
			return e, true
		}
	}
	return KeywordImage{}, false
}

// BaseSelector remembers the current base image across renders. A keyword in
// the text switches it; the choice sticks until another keyword appears.
type BaseSelector struct {
	mapping KeywordMap

	mu      sync.Mutex
	current string
}

func NewBaseSelector(b BaseConfig) *BaseSelector {
	return &BaseSelector{mapping: b.Mapping, current: b.Image}
}

// Select returns the base image for text and the text with the matched
// keyword removed and surrounding whitespace trimmed.
func (s *BaseSelector) Select(text string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.mapping.Match(text); ok {
		if e.Image != s.current {
			applog.WithComponent("config").Info("keyword switches base image",
				slog.String("keyword", e.Keyword), slog.String("image", e.Image))
		}
		s.current = e.Image
		text = strings.TrimSpace(strings.ReplaceAll(text, e.Keyword, ""))
	}
	return s.current, text
}

// Current returns the base image without consulting any text.
func (s *BaseSelector) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
