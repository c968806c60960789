// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// Image count limits per flow.
const (
	MaxPromotionImages = 6
	MaxProfileImages   = 1
)

// ImagePayload is a processed image ready for upload: a file name and the
// base64 encoded JPEG body.
type ImagePayload struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// DataURI returns the payload as a data URI, the form the profile image
// field is sent in.
func (p ImagePayload) DataURI() string {
	return "data:" + MimeTypeJPEG + ";base64," + p.Data
}

// IsSupportedImageType checks if a MIME type can be compressed.
func IsSupportedImageType(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	default:
		return false
	}
}
