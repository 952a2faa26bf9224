/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func writeFont(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return p
}

func TestFontLibrary_ResolveFallsBackToBuiltin(t *testing.T) {
	fl := NewFontLibrary(t.TempDir())
	f := fl.Resolve(filepath.Join(t.TempDir(), "missing.ttf"), "NoSuchFamily")
	if f != Builtin() {
		t.Fatalf("expected built-in font")
	}
}

func TestFontLibrary_ResolveByPathIsCached(t *testing.T) {
	dir := t.TempDir()
	p := writeFont(t, dir, "custom.ttf")
	fl := NewFontLibrary(dir)
	a := fl.Resolve(p, "")
	b := fl.Resolve(p, "")
	if a == nil || a == Builtin() {
		t.Fatalf("expected font loaded from path")
	}
	if a != b {
		t.Fatalf("expected cached font on second resolve")
	}
}

func TestFontLibrary_ResolveByFamilyInDirs(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "Dialog.ttf")
	fl := NewFontLibrary(dir)
	f := fl.Resolve("", "Dialog")
	if f == nil || f == Builtin() {
		t.Fatalf("expected family found in font dir")
	}
	if fl.Resolve("", "dialog") != f {
		t.Fatalf("family lookup should be case-insensitive once registered")
	}
}

func TestFontLibrary_UnparsableFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.ttf")
	if err := os.WriteFile(p, []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	fl := NewFontLibrary(dir)
	if err := fl.LoadTTF("Broken", p); err == nil {
		t.Fatalf("expected parse error")
	}
	if fl.Resolve(p, "Broken") != Builtin() {
		t.Fatalf("expected built-in fallback for broken font")
	}
}

func TestFaceMeasurer_DeterministicAndScaling(t *testing.T) {
	m := NewFaceMeasurer(nil)
	defer m.Close()
	w1 := m.Advance(20, "Hello")
	w2 := m.Advance(20, "Hello")
	if w1 <= 0 || w1 != w2 {
		t.Fatalf("expected deterministic positive width, got %v and %v", w1, w2)
	}
	if big := m.Advance(40, "Hello"); big <= w1 {
		t.Fatalf("expected width to grow with size: %v <= %v", big, w1)
	}
	if m.Advance(20, "") != 0 {
		t.Fatalf("empty text should measure 0")
	}
	a, d := m.Metrics(20)
	if a <= 0 || d <= 0 {
		t.Fatalf("unexpected metrics %d/%d", a, d)
	}
}
