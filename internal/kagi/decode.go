// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// FRAGMENT DECODERS
// =============================================================================

// ParseCitations extracts (absolute href, link text) pairs from a message's
// citations fragment, in document order. Anchors outside the marked ordered
// list are ignored. Relative hrefs are resolved against base.
func ParseCitations(fragment string, base string) ([]Citation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	baseURL, _ := url.Parse(base)

	var citations []Citation
	doc.Find("ol.citations a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if href == "" {
			return
		}
		if baseURL != nil {
			if ref, err := url.Parse(href); err == nil {
				href = baseURL.ResolveReference(ref).String()
			}
		}
		citations = append(citations, Citation{
			URL:   href,
			Title: strings.TrimSpace(sel.Text()),
		})
	})

	return citations, nil
}

// ParseMetadata extracts labeled attribute/value pairs from a per-message
// metadata fragment. Each list item carries its key in a data-label
// attribute and its value as text. The last occurrence of a duplicate key
// wins; order is otherwise irrelevant.
func ParseMetadata(fragment string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	doc.Find("li[data-label]").Each(func(_ int, sel *goquery.Selection) {
		key := sel.AttrOr("data-label", "")
		if key == "" {
			return
		}
		meta[key] = strings.TrimSpace(sel.Text())
	})

	return meta, nil
}

// DecodeDataURI decodes the base64 content of a data URI. The input must
// contain a "base64," marker; everything after it is the encoded payload.
// A missing marker or invalid encoding is a hard error: the caller must
// treat the one attachment as unrecoverable, not the whole transcript.
func DecodeDataURI(uri string) ([]byte, error) {
	const marker = "base64,"

	idx := strings.Index(uri, marker)
	if idx < 0 {
		return nil, &Error{Type: ErrTypeDecode, Message: "data URI has no base64 marker"}
	}

	data, err := base64.StdEncoding.DecodeString(uri[idx+len(marker):])
	if err != nil {
		return nil, &Error{Type: ErrTypeDecode, Message: "invalid base64 in data URI", Cause: err}
	}
	return data, nil
}
