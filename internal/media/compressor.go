// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media turns picked photos into the compressed JPEG payloads the
// platform accepts for profile and promotion images.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/util"
)

// Defaults used by NewCompressor when an option is zero.
const (
	DefaultMaxEdge       = 1080
	DefaultQuality       = 70
	DefaultMaxInputBytes = 20 << 20
)

var (
	// ErrTooManyImages is returned when a selection exceeds its limit.
	ErrTooManyImages = errors.New("too many images")
	// ErrUnsupportedFormat is returned for anything but JPEG, PNG, GIF or WebP.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge is returned when the input exceeds MaxInputBytes.
	ErrTooLarge = errors.New("image too large")
)

// Options configures a Compressor.
type Options struct {
	// MaxEdge bounds the longer side of the output in pixels.
	MaxEdge int
	// Quality is the JPEG quality, 1-100.
	Quality       int
	MaxInputBytes int64
}

// Source is one picked file.
type Source struct {
	Name   string
	Reader io.Reader
}

// Compressor re-encodes images as bounded JPEG payloads.
type Compressor struct {
	opts  Options
	newID func() string
}

// NewCompressor creates a compressor, filling zero options with defaults.
func NewCompressor(opts Options) *Compressor {
	if opts.MaxEdge <= 0 {
		opts.MaxEdge = DefaultMaxEdge
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	return &Compressor{
		opts:  opts,
		newID: func() string { return uuid.NewString()[:8] },
	}
}

// Compress decodes one image, applies its EXIF orientation, fits it within
// MaxEdge and returns it as a base64 JPEG payload.
func (c *Compressor) Compress(name string, r io.Reader) (model.ImagePayload, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.opts.MaxInputBytes+1))
	if err != nil {
		return model.ImagePayload{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if int64(len(data)) > c.opts.MaxInputBytes {
		return model.ImagePayload{}, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}

	if detectFormat(data) == "" {
		return model.ImagePayload{}, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return model.ImagePayload{}, fmt.Errorf("decoding %s: %w", name, err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	img = fit(img, c.opts.MaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.opts.Quality}); err != nil {
		return model.ImagePayload{}, fmt.Errorf("encoding %s: %w", name, err)
	}

	return model.ImagePayload{
		Filename: c.filename(name),
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// CompressAll compresses a selection. A selection over limit is rejected
// as a whole with ErrTooManyImages before anything is decoded.
func (c *Compressor) CompressAll(sources []Source, limit int) ([]model.ImagePayload, error) {
	if limit > 0 && len(sources) > limit {
		return nil, fmt.Errorf("%d selected, limit %d: %w", len(sources), limit, ErrTooManyImages)
	}

	payloads := make([]model.ImagePayload, 0, len(sources))
	for _, src := range sources {
		p, err := c.Compress(src.Name, src.Reader)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func (c *Compressor) filename(name string) string {
	return util.FilenameStem(name, "image") + "-" + c.newID() + ".jpg"
}

// fit shrinks img so its longer side is at most maxEdge. Smaller images
// are returned unchanged.
func fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

// detectFormat sniffs the image format from raw bytes. TIFF is never
// accepted (CVE-2023-36308 in disintegration/imaging).
func detectFormat(data []byte) string {
	contentType, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if !model.IsSupportedImageType(contentType) {
		return ""
	}
	return strings.TrimPrefix(contentType, "image/")
}
