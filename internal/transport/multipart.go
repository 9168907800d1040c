// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP layer shared by every remote call.
package transport

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Form field names the service expects for multipart submissions.
const (
	// StateField carries the JSON request payload as a string form field.
	StateField = "state"

	// FileField carries raw attachment bytes; it repeats once per file.
	FileField = "file"

	// ThumbnailField optionally carries a small derived thumbnail image,
	// at most one per file.
	ThumbnailField = "__kagithumbnail"
)

// FilePart is one attachment in a multipart submission.
type FilePart struct {
	Filename  string
	Data      []byte
	Thumbnail []byte // optional; nil when the attachment has no preview
}

// EncodeMultipart builds a multipart/form-data body with the JSON state
// payload and the given file parts. It returns the encoded body and the
// Content-Type header value (which carries the boundary).
func EncodeMultipart(state string, files []FilePart) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(StateField, state); err != nil {
		return nil, "", err
	}

	for _, f := range files {
		part, err := w.CreateFormFile(FileField, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}

		if f.Thumbnail != nil {
			thumb, err := w.CreateFormFile(ThumbnailField, f.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := thumb.Write(f.Thumbnail); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
