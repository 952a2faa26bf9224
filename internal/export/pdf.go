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
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/jung-kurt/gofpdf"

	"textfit/internal/version"
)

// encodePDF places img on a single page whose size in points equals the
// image size in pixels.
//
// The raster is embedded as 8-bit PNG so that transparency survives.
func encodePDF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	wd, ht := float64(b.Dx()), float64(b.Dy())

	var raster bytes.Buffer
	if err := encodePNG(&raster, eightBit(img)); err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetCreator("textfit "+version.String(), false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("canvas", opt, &raster)
	pdf.ImageOptions("canvas", 0, 0, wd, ht, false, opt, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// eightBit converts img to NRGBA unless it already has 8-bit channels.
// gofpdf cannot read 16-bit PNG data.
func eightBit(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.Gray, *image.Paletted:
		return img
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
