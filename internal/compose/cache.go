/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/singleflight"

	applog "textfit/internal/log"
)

// DefaultCacheSize is the number of decoded images kept by NewImageCache.
const DefaultCacheSize = 32

// ImageCache is a bounded read-through cache of decoded images keyed by
// cleaned path. The least recently used entry is evicted first. Concurrent
// first loads of one path share a single decode.
//
// Cached images are never handed out; Get returns a private copy.
type ImageCache struct {
	lru   *lru.Cache[string, *image.NRGBA]
	group singleflight.Group

	decode func(path string) (*image.NRGBA, error)
}

// NewImageCache returns a cache holding at most size images. size <= 0 means
// DefaultCacheSize.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// New only fails for a non-positive size
	c, _ := lru.New[string, *image.NRGBA](size)
	return &ImageCache{lru: c, decode: decodeFile}
}

// Get returns an independent copy of the image at path.
func (c *ImageCache) Get(path string) (*image.NRGBA, error) {
	key := filepath.Clean(path)
	if img, ok := c.lru.Get(key); ok {
		return cloneNRGBA(img), nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if img, ok := c.lru.Get(key); ok {
			return img, nil
		}
		img, err := c.decode(key)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		applog.WithComponent("compose").Debug("image load shared", slog.String("path", key))
	}
	return cloneNRGBA(v.(*image.NRGBA)), nil
}

// Invalidate drops path from the cache.
func (c *ImageCache) Invalidate(path string) {
	c.lru.Remove(filepath.Clean(path))
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int { return c.lru.Len() }

func decodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	applog.WithComponent("compose").Debug("image decoded",
		slog.String("path", path), slog.String("format", format),
		slog.Int("w", img.Bounds().Dx()), slog.Int("h", img.Bounds().Dy()))
	return toNRGBA(img), nil
}

// toNRGBA converts img to a fresh NRGBA image whose bounds start at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}
