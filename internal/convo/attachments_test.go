// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package convo

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestAttachmentsCeiling(t *testing.T) {
	var a Attachments

	big := make([]byte, MaxAttachmentBytes-10)
	if !a.Add("big.bin", big) {
		t.Fatal("Add(big) = false, want accepted")
	}

	// Cumulative, not per-file: a small second file pushes past the cap.
	if a.Add("small.bin", make([]byte, 100)) {
		t.Error("Add(small) = true, want rejected past the cumulative cap")
	}
	if !a.OversizeWarning() {
		t.Error("OversizeWarning() = false after rejection")
	}

	// The accepted attachment survives the rejection.
	if a.Count() != 1 || a.TotalSize() != len(big) {
		t.Errorf("Count() = %d, TotalSize() = %d", a.Count(), a.TotalSize())
	}

	// A file that still fits is accepted after a rejection.
	if !a.Add("tiny.bin", make([]byte, 5)) {
		t.Error("Add(tiny) = false, want accepted")
	}

	a.ClearWarning()
	if a.OversizeWarning() {
		t.Error("warning not cleared")
	}

	a.Reset()
	if a.Count() != 0 || a.TotalSize() != 0 {
		t.Errorf("after Reset: Count() = %d, TotalSize() = %d", a.Count(), a.TotalSize())
	}
}

func TestAttachmentThumbnails(t *testing.T) {
	// A 300x200 PNG gets a preview scaled to the 128px bound.
	src := image.NewRGBA(image.Rect(0, 0, 300, 200))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	var a Attachments
	if !a.Add("img.png", buf.Bytes()) {
		t.Fatal("Add(img.png) = false")
	}

	files := a.Files()
	if len(files) != 1 {
		t.Fatalf("Files() length = %d", len(files))
	}
	if files[0].Thumbnail == nil {
		t.Fatal("image attachment has no thumbnail")
	}

	thumb, err := png.Decode(bytes.NewReader(files[0].Thumbnail))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() != 128 {
		t.Errorf("thumbnail width = %d, want 128", bounds.Dx())
	}
	if bounds.Dy() > 128 {
		t.Errorf("thumbnail height = %d, want <= 128", bounds.Dy())
	}
}

func TestAttachmentNonImageHasNoThumbnail(t *testing.T) {
	var a Attachments
	if !a.Add("notes.txt", []byte("just text")) {
		t.Fatal("Add(notes.txt) = false")
	}
	if a.Files()[0].Thumbnail != nil {
		t.Error("non-image attachment got a thumbnail")
	}
}

func TestSmallImageNotUpscaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	thumb := makeThumbnail(buf.Bytes())
	if thumb == nil {
		t.Fatal("makeThumbnail returned nil for a valid image")
	}
	decoded, err := png.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 10 {
		t.Errorf("small image rescaled to %v", decoded.Bounds())
	}
}
