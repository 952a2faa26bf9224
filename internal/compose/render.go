/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose draws fitted text or images onto a base image and encodes
// the result.
package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"textfit/internal/export"
	"textfit/internal/geom"
	applog "textfit/internal/log"
	"textfit/internal/textlayout"
)

// ErrNoSource is returned when a required image has neither a path nor pixels.
var ErrNoSource = errors.New("no image source")

// Source is an image given by path or in memory. Image wins when both are set.
// In-memory images are copied before drawing.
type Source struct {
	Path  string
	Image image.Image
}

func (s Source) empty() bool { return s.Image == nil && s.Path == "" }

func (s Source) String() string {
	if s.Image != nil {
		return "<memory>"
	}
	return s.Path
}

// TextRequest asks for Text fitted into Region on top of Base.
type TextRequest struct {
	Base    Source
	Overlay Source
	Region  geom.Rect
	Text    string
	Options textlayout.Options

	// FontPath is tried first, then FontFamily, then the built-in font.
	FontPath   string
	FontFamily string
	// EmojiFontPath, when loadable, draws emoji runs. Otherwise emoji runs use
	// the main font.
	EmojiFontPath string

	Format export.Format
}

// ImageRequest asks for Content scaled into Region on top of Base.
type ImageRequest struct {
	Base    Source
	Overlay Source
	Content Source
	Region  geom.Rect
	Fit     geom.FitOptions
	// KeepAlpha blends translucent content over the base instead of
	// replacing the pixels underneath.
	KeepAlpha bool

	Format export.Format
}

// Output is an encoded render plus the geometry that produced it.
type Output struct {
	Bytes  []byte
	Format export.Format
	Canvas *image.NRGBA
	Layout textlayout.Result // text renders
	Fit    geom.FitTransform // image renders
}

// Empty reports a render that produced nothing: empty text or no content.
func (o Output) Empty() bool { return o.Bytes == nil }

// Renderer composites requests. It is safe for concurrent use; every request
// builds its own faces.
type Renderer struct {
	Cache  *ImageCache
	Fonts  *textlayout.FontLibrary
	Logger *slog.Logger
}

// NewRenderer returns a Renderer. Nil arguments get a default cache and font
// library.
func NewRenderer(cache *ImageCache, fonts *textlayout.FontLibrary) *Renderer {
	if cache == nil {
		cache = NewImageCache(DefaultCacheSize)
	}
	if fonts == nil {
		fonts = textlayout.NewFontLibrary()
	}
	return &Renderer{Cache: cache, Fonts: fonts}
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return applog.WithComponent("compose")
}

// RenderText fits req.Text into req.Region at the largest size that fits,
// draws it onto a copy of the base, applies the overlay and encodes. Empty
// text yields an empty Output.
func (r *Renderer) RenderText(ctx context.Context, req TextRequest) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	l := applog.WithOperation(r.logger(), "text")
	if err := req.Region.Check(); err != nil {
		return Output{}, err
	}
	if req.Text == "" {
		l.DebugContext(ctx, "nothing to draw")
		return Output{}, nil
	}
	canvas, err := r.load(req.Base)
	if err != nil {
		return Output{}, fmt.Errorf("base image: %w", err)
	}

	main := textlayout.NewFaceMeasurer(r.Fonts.Resolve(req.FontPath, req.FontFamily))
	defer func() { _ = main.Close() }()
	emoji := main
	if req.EmojiFontPath != "" {
		if f, err := r.Fonts.Load(req.EmojiFontPath); err == nil {
			emoji = textlayout.NewFaceMeasurer(f)
			defer func() { _ = emoji.Close() }()
		} else {
			l.WarnContext(ctx, "emoji font not loadable, using main font", slog.String("path", req.EmojiFontPath), slog.Any("err", err))
		}
	}

	res, err := textlayout.Fit(req.Text, req.Region, req.Options, main)
	if err != nil {
		return Output{}, err
	}
	drawLines(canvas, res, req.Region, req.Options, main, emoji)
	r.overlay(ctx, canvas, req.Overlay)

	out, err := r.encode(canvas, req.Format)
	if err != nil {
		return Output{}, err
	}
	out.Layout = res
	l.InfoContext(ctx, "text rendered",
		slog.Int("size", res.Size), slog.Int("lines", len(res.Lines)),
		slog.Bool("overflow", res.Overflow), slog.String("region", req.Region.String()))
	return out, nil
}

// drawLines draws the fitted block. Units advance by their own truncated
// width. Drawing stops after the first line that ends below the region.
func drawLines(dst draw.Image, res textlayout.Result, region geom.Rect, opts textlayout.Options, main, emoji *textlayout.FaceMeasurer) {
	if res.Empty() {
		return
	}
	units := textlayout.Partition(res.Lines, opts)
	ascent, _ := main.Metrics(res.Size)
	y0 := opts.VAlign.PlaceY(region.Y1, region.Height(), res.BlockHeight)
	y := y0
	for i, ln := range res.Lines {
		x := opts.Align.PlaceX(region.X1, region.Width(), int(ln.Width))
		for _, u := range units[i] {
			m := main
			if u.Variant == textlayout.VariantEmoji {
				m = emoji
			}
			d := font.Drawer{
				Dst:  dst,
				Src:  image.NewUniform(u.Color),
				Face: m.Face(res.Size),
				Dot:  fixed.P(x, y+ascent),
			}
			d.DrawString(u.Text)
			x += int(m.Advance(res.Size, u.Text))
		}
		y += res.LineHeight
		if y-y0 > region.Height() {
			break
		}
	}
}

// RenderImage scales req.Content to the largest size that fits req.Region,
// pastes it onto a copy of the base, applies the overlay and encodes. A
// request without content yields an empty Output.
func (r *Renderer) RenderImage(ctx context.Context, req ImageRequest) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	l := applog.WithOperation(r.logger(), "image")
	if req.Content.empty() {
		l.DebugContext(ctx, "nothing to draw")
		return Output{}, nil
	}
	content, err := r.load(req.Content)
	if err != nil {
		return Output{}, fmt.Errorf("content image: %w", err)
	}
	b := content.Bounds()
	t, err := geom.Contain(b.Dx(), b.Dy(), req.Region, req.Fit)
	if err != nil {
		return Output{}, err
	}
	canvas, err := r.load(req.Base)
	if err != nil {
		return Output{}, fmt.Errorf("base image: %w", err)
	}

	scaled := scale(content, t.W, t.H)
	op := draw.Src
	if req.KeepAlpha && !opaque(scaled) {
		op = draw.Over
	}
	draw.Draw(canvas, t.Rect().Image(), scaled, scaled.Bounds().Min, op)
	r.overlay(ctx, canvas, req.Overlay)

	out, err := r.encode(canvas, req.Format)
	if err != nil {
		return Output{}, err
	}
	out.Fit = t
	l.InfoContext(ctx, "image rendered",
		slog.Float64("scale", t.Scale), slog.String("placed", t.Rect().String()),
		slog.String("op", opName(op)))
	return out, nil
}

func opName(op draw.Op) string {
	if op == draw.Over {
		return "over"
	}
	return "src"
}

// load returns a private NRGBA copy of src.
func (r *Renderer) load(src Source) (*image.NRGBA, error) {
	switch {
	case src.Image != nil:
		return toNRGBA(src.Image), nil
	case src.Path != "":
		return r.Cache.Get(src.Path)
	}
	return nil, ErrNoSource
}

// overlay draws src over the whole canvas at the origin. A source that
// cannot be loaded is logged and skipped.
func (r *Renderer) overlay(ctx context.Context, canvas *image.NRGBA, src Source) {
	if src.empty() {
		return
	}
	if src.Image == nil {
		if _, err := os.Stat(src.Path); err != nil {
			r.logger().WarnContext(ctx, "overlay image does not exist", slog.String("path", src.Path))
			return
		}
	}
	img, err := r.load(src)
	if err != nil {
		r.logger().WarnContext(ctx, "overlay image not loadable", slog.String("overlay", src.String()), slog.Any("err", err))
		return
	}
	draw.Draw(canvas, img.Bounds(), img, image.Point{}, draw.Over)
}

func (r *Renderer) encode(canvas *image.NRGBA, f export.Format) (Output, error) {
	if f == "" {
		f = export.FormatPNG
	}
	data, err := export.EncodeBytes(canvas, f)
	if err != nil {
		return Output{}, err
	}
	return Output{Bytes: data, Format: f, Canvas: canvas}, nil
}
