// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging resizes uploaded images. It produces JPEG thumbnails for
// the media library and bounded-width variants for article cover images.
// Images are never upscaled.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// maxImagePixels caps the number of pixels to prevent memory bombs.
// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
const maxImagePixels = 100_000_000

// ErrTooLarge is returned for images exceeding maxImagePixels.
var ErrTooLarge = errors.New("imaging: image too large")

// Variant describes a single output size.
type Variant struct {
	Name    string // e.g., "thumb", "cover"
	Width   int    // Target width in pixels
	Quality int    // JPEG quality 1-100
}

var (
	// Thumb is the media library thumbnail size.
	Thumb = Variant{Name: "thumb", Width: 400, Quality: 80}
	// Cover bounds article cover images.
	Cover = Variant{Name: "cover", Width: 1920, Quality: 85}
)

// ProcessedImage holds one generated variant ready for storage.
type ProcessedImage struct {
	Name        string
	Width       int
	Height      int
	Data        []byte
	ContentType string // Always "image/jpeg"
}

// Dimensions reads the pixel size without decoding the whole image.
func Dimensions(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("imaging: decode config: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Resize produces v from the source image, applying EXIF orientation. When
// the source is not wider than v.Width it is re-encoded at its own size.
func Resize(original []byte, v Variant) (*ProcessedImage, error) {
	w, h, _, err := Dimensions(original)
	if err != nil {
		return nil, err
	}
	if int64(w)*int64(h) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, w, h, maxImagePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	if img.Bounds().Dx() > v.Width {
		img = imaging.Resize(img, v.Width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(v.Quality)); err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", v.Name, err)
	}

	b := img.Bounds()
	return &ProcessedImage{
		Name:        v.Name,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
	}, nil
}

// Thumbnail returns a JPEG thumbnail of the image, or nil when the source
// is already narrower than the thumbnail width.
func Thumbnail(original []byte) (*ProcessedImage, error) {
	w, _, _, err := Dimensions(original)
	if err != nil {
		return nil, err
	}
	if w <= Thumb.Width {
		return nil, nil
	}
	return Resize(original, Thumb)
}
