// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Javier-Pedernera/asociados-go/internal/media"
)

// uploadField is the multipart field carrying picked images.
const uploadField = "images"

// readUploads parses a multipart upload and returns one source per picked
// file. The returned func closes the files and removes temporary parts.
func (g *Gateway) readUploads(w http.ResponseWriter, r *http.Request) ([]media.Source, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, g.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(g.opts.MaxUploadBytes); err != nil {
		return nil, func() {}, fmt.Errorf("parsing upload: %w", err)
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	headers := r.MultipartForm.File[uploadField]
	sources := make([]media.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		closers = append(closers, f)
		sources = append(sources, media.Source{Name: fh.Filename, Reader: f})
	}
	return sources, cleanup, nil
}
