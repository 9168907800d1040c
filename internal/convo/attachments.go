// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo holds the conversation transcript and the reconciliation
// engine that folds streamed protocol events into it.
package convo

import (
	"bytes"
	"image"
	"image/png"

	_ "image/gif"  // register decoders for thumbnail generation
	_ "image/jpeg"

	"github.com/jeranaias/kagi-tui/internal/transport"
)

// MaxAttachmentBytes is the cumulative size ceiling for the pending
// attachment set.
const MaxAttachmentBytes = 16 << 20 // 16 MiB

// thumbnailMaxDim bounds the longer side of generated thumbnails.
const thumbnailMaxDim = 128

// =============================================================================
// PENDING ATTACHMENTS
// =============================================================================

// Attachments is the pending attachment set for the next submission.
// Additions that would push the cumulative size past the ceiling are
// rejected; attachments already accepted remain accepted.
type Attachments struct {
	files     []transport.FilePart
	totalSize int
	oversize  bool
}

// Add validates the attachment against the size ceiling and appends it.
// On rejection it sets the user-visible warning flag and reports false.
func (a *Attachments) Add(filename string, data []byte) bool {
	if a.totalSize+len(data) > MaxAttachmentBytes {
		a.oversize = true
		return false
	}
	a.files = append(a.files, transport.FilePart{
		Filename:  filename,
		Data:      data,
		Thumbnail: makeThumbnail(data),
	})
	a.totalSize += len(data)
	return true
}

// Files returns the accepted file parts in order.
func (a *Attachments) Files() []transport.FilePart {
	return a.files
}

// Count returns the number of accepted attachments.
func (a *Attachments) Count() int {
	return len(a.files)
}

// TotalSize returns the cumulative accepted size in bytes.
func (a *Attachments) TotalSize() int {
	return a.totalSize
}

// OversizeWarning reports whether an addition was rejected for exceeding
// the ceiling. ClearWarning resets it once the UI has surfaced it.
func (a *Attachments) OversizeWarning() bool {
	return a.oversize
}

// ClearWarning resets the oversize warning flag.
func (a *Attachments) ClearWarning() {
	a.oversize = false
}

// Reset drops all pending attachments and the warning flag.
func (a *Attachments) Reset() {
	a.files = nil
	a.totalSize = 0
	a.oversize = false
}

// =============================================================================
// THUMBNAILS
// =============================================================================

// makeThumbnail derives a small preview for image attachments: a
// nearest-neighbor downscale to fit thumbnailMaxDim, PNG-encoded. Returns
// nil for non-image data; such attachments simply ship without a preview.
func makeThumbnail(data []byte) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	scale := 1.0
	if w > h {
		scale = float64(thumbnailMaxDim) / float64(w)
	} else {
		scale = float64(thumbnailMaxDim) / float64(h)
	}
	if scale > 1 {
		scale = 1
	}

	tw := int(float64(w) * scale)
	th := int(float64(h) * scale)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	for y := 0; y < th; y++ {
		sy := bounds.Min.Y + y*h/th
		for x := 0; x < tw; x++ {
			sx := bounds.Min.X + x*w/tw
			dst.Set(x, y, src.At(sx, sy))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil
	}
	return buf.Bytes()
}
