/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	applog "textfit/internal/log"
)

// DefaultFallbackFamily is tried when no explicit font path can be loaded.
const DefaultFallbackFamily = "DejaVuSans"

// FontLibrary resolves fonts by explicit path or family name and caches parsed
// fonts by path. Parsed *opentype.Font values are immutable and shared.
// Safe for concurrent use.
type FontLibrary struct {
	// Dirs are searched for <family>.ttf|.otf|.ttc when resolving by family.
	Dirs []string

	mu     sync.RWMutex
	byPath map[string]*opentype.Font
	family map[string]*opentype.Font
}

func NewFontLibrary(dirs ...string) *FontLibrary {
	if len(dirs) == 0 {
		dirs = DefaultFontDirs()
	}
	return &FontLibrary{Dirs: dirs, byPath: map[string]*opentype.Font{}, family: map[string]*opentype.Font{}}
}

// DefaultFontDirs returns the usual system font directories for the current OS.
func DefaultFontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	case "darwin":
		return []string{"/Library/Fonts", "/System/Library/Fonts", filepath.Join(os.Getenv("HOME"), "Library", "Fonts")}
	default:
		return []string{"/usr/share/fonts/truetype/dejavu", "/usr/share/fonts/TTF", "/usr/share/fonts", filepath.Join(os.Getenv("HOME"), ".fonts")}
	}
}

// LoadTTF loads a font file and registers it under family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	f, err := fl.load(path)
	if err != nil {
		return err
	}
	fl.mu.Lock()
	fl.family[strings.ToLower(family)] = f
	fl.mu.Unlock()
	return nil
}

// Load parses the font at path, reusing an earlier parse of the same path.
func (fl *FontLibrary) Load(path string) (*opentype.Font, error) { return fl.load(path) }

func (fl *FontLibrary) load(path string) (*opentype.Font, error) {
	fl.mu.RLock()
	f, ok := fl.byPath[path]
	fl.mu.RUnlock()
	if ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err = parseFont(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.mu.Lock()
	fl.byPath[path] = f
	fl.mu.Unlock()
	return f, nil
}

// parseFont accepts single fonts and collections (first face).
func parseFont(data []byte) (*opentype.Font, error) {
	f, err := opentype.Parse(data)
	if err == nil {
		return f, nil
	}
	c, cerr := opentype.ParseCollection(data)
	if cerr != nil || c.NumFonts() == 0 {
		return nil, err
	}
	return c.Font(0)
}

// Resolve returns a usable font, trying in order: the explicit path, the
// family name (registered or found in Dirs), then the built-in Go Regular.
// It never fails; each fallback step is logged.
func (fl *FontLibrary) Resolve(path, family string) *opentype.Font {
	l := applog.WithOperation(applog.WithComponent("fonts"), "resolve")
	if strings.TrimSpace(path) != "" {
		f, err := fl.load(path)
		if err == nil {
			return f
		}
		l.Warn("font path not loadable, trying fallback family", slog.String("path", path), slog.Any("err", err))
	}
	if family == "" {
		family = DefaultFallbackFamily
	}
	if f := fl.findFamily(family); f != nil {
		return f
	}
	l.Warn("fallback family not found, using built-in font", slog.String("family", family))
	return Builtin()
}

func (fl *FontLibrary) findFamily(family string) *opentype.Font {
	fl.mu.RLock()
	f, ok := fl.family[strings.ToLower(family)]
	fl.mu.RUnlock()
	if ok {
		return f
	}
	for _, dir := range fl.Dirs {
		for _, ext := range []string{".ttf", ".otf", ".ttc"} {
			p := filepath.Join(dir, family+ext)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := fl.LoadTTF(family, p); err == nil {
				return fl.findFamily(family)
			}
		}
	}
	return nil
}

var builtinFont = sync.OnceValue(func() *opentype.Font {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse built-in font: %v", err))
	}
	return f
})

// Builtin returns the embedded Go Regular font.
func Builtin() *opentype.Font { return builtinFont() }

// FaceMeasurer measures text with faces of one font, creating and caching a
// face per pixel size. Faces are created at 72 DPI so size equals pixels.
// Hinting is off so widths scale monotonically with size.
type FaceMeasurer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[int]font.Face
}

func NewFaceMeasurer(f *opentype.Font) *FaceMeasurer {
	if f == nil {
		f = Builtin()
	}
	return &FaceMeasurer{font: f, faces: map[int]font.Face{}}
}

// Face returns the cached face for size. Callers must not use the returned
// face concurrently with other FaceMeasurer calls.
func (m *FaceMeasurer) Face(size int) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faceLocked(size)
}

func (m *FaceMeasurer) faceLocked(size int) font.Face {
	if f, ok := m.faces[size]; ok {
		return f
	}
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		applog.WithComponent("fonts").Warn("cannot create face, using basic font", slog.Int("size", size), slog.Any("err", err))
		m.faces[size] = basicfont.Face7x13
		return basicfont.Face7x13
	}
	m.faces[size] = face
	return face
}

func (m *FaceMeasurer) Advance(size int, text string) float64 {
	if text == "" {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fixedToFloat(font.MeasureString(m.faceLocked(size), text))
}

func (m *FaceMeasurer) Metrics(size int) (ascent, descent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	met := m.faceLocked(size).Metrics()
	return met.Ascent.Round(), met.Descent.Round()
}

// Close releases all cached faces.
func (m *FaceMeasurer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for size, f := range m.faces {
		if f != basicfont.Face7x13 {
			_ = f.Close()
		}
		delete(m.faces, size)
	}
	return nil
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
