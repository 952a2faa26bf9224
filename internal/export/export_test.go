/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: 90, A: 200})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatPNG, "png": FormatPNG, "PDF": FormatPDF, " pdf ": FormatPDF}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("tiff"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	if FormatFromPath("out/a.PDF", FormatPNG) != FormatPDF {
		t.Fatalf("pdf extension not detected")
	}
	if FormatFromPath("out/a", FormatPDF) != FormatPDF {
		t.Fatalf("default not used")
	}
	if FormatPNG.Ext() != ".png" {
		t.Fatalf("unexpected ext %q", FormatPNG.Ext())
	}
}

func TestEncodePNG_Decodable(t *testing.T) {
	src := testImage()
	data, err := EncodeBytes(src, FormatPNG)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", got.Bounds())
	}
	r, g, b, a := got.At(5, 7).RGBA()
	wr, wg, wb, wa := src.At(5, 7).RGBA()
	if r != wr || g != wg || b != wb || a != wa {
		t.Fatalf("pixel changed")
	}
}

func TestEncodePDF_NonEmpty(t *testing.T) {
	data, err := EncodeBytes(testImage(), FormatPDF)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("missing pdf header")
	}
	if !bytes.Contains(data, []byte("/MediaBox [0 0 40.00 30.00]")) {
		t.Fatalf("page not sized to the canvas")
	}
}

func TestEncode_RejectsEmptyAndUnknown(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, image.NewNRGBA(image.Rect(0, 0, 0, 0)), FormatPNG); err == nil {
		t.Fatalf("expected error for empty image")
	}
	if err := Encode(&bytes.Buffer{}, testImage(), Format("gif")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "out.png")
	if err := WriteFile(p, []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil || string(data) != "x" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}
