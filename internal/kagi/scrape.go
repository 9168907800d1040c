// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// THREAD LIST SCRAPING
// =============================================================================

// parseThreadList scrapes the thread_list.html fragment into display
// groups. Category headers introduce groups; each thread row contributes
// its id (data-code attribute), title, and excerpt.
func parseThreadList(fragment string) ([]ThreadGroup, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var groups []ThreadGroup
	doc.Find(".thread-group").Each(func(_ int, groupSel *goquery.Selection) {
		group := ThreadGroup{
			Label: strings.TrimSpace(groupSel.Find("h3").First().Text()),
		}

		groupSel.Find("[data-code]").Each(func(_ int, row *goquery.Selection) {
			id := row.AttrOr("data-code", "")
			if id == "" {
				return
			}
			group.Threads = append(group.Threads, ThreadEntry{
				ID:      id,
				Title:   strings.TrimSpace(row.Find(".thread-title").First().Text()),
				Excerpt: strings.TrimSpace(row.Find(".thread-excerpt").First().Text()),
			})
		})

		if group.Label != "" || len(group.Threads) > 0 {
			groups = append(groups, group)
		}
	})

	return groups, nil
}

// =============================================================================
// COMPANION SCRAPING
// =============================================================================

// parseCompanions scrapes companion cards: id from the card's hidden
// input, name from its heading, icon as the inline SVG markup verbatim.
func parseCompanions(page string) ([]Companion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var companions []Companion
	doc.Find(".companion-card").Each(func(_ int, card *goquery.Selection) {
		id := card.Find(`input[type="hidden"]`).First().AttrOr("value", "")
		if id == "" {
			return
		}

		icon := ""
		if svg := card.Find("svg").First(); svg.Length() > 0 {
			if markup, err := goquery.OuterHtml(svg); err == nil {
				icon = markup
			}
		}

		companions = append(companions, Companion{
			ID:   id,
			Name: strings.TrimSpace(card.Find("h3").First().Text()),
			Icon: icon,
		})
	})

	return companions, nil
}

// =============================================================================
// ACCOUNT PAGE SCRAPING
// =============================================================================

// accountEmailField marks an authenticated account page; its value is the
// signed-in email address.
const accountEmailField = "account_email"

// parseAccountPage reports whether the page belongs to an authenticated
// session, and if so the account email.
func parseAccountPage(page string) (authenticated bool, email string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return false, "", err
	}

	field := doc.Find(`input[name="` + accountEmailField + `"]`).First()
	if field.Length() == 0 {
		return false, "", nil
	}
	return true, field.AttrOr("value", ""), nil
}

// =============================================================================
// SIGN-IN PAGE SCRAPING
// =============================================================================

// parseSigninPage scrapes the QR pairing token and CSRF token from the
// sign-in page's pairing element data attributes.
func parseSigninPage(page string) (token, csrf string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", "", err
	}

	el := doc.Find("[data-qr-token]").First()
	if el.Length() == 0 {
		return "", "", &Error{Type: ErrTypeScrape, Message: "sign-in page has no pairing element"}
	}

	token = el.AttrOr("data-qr-token", "")
	csrf = el.AttrOr("data-csrf-token", "")
	if token == "" || csrf == "" {
		return "", "", &Error{Type: ErrTypeScrape, Message: "pairing element is missing token attributes"}
	}
	return token, csrf, nil
}

// ExtractToken pulls a session token embedded in a larger string: the
// substring after a "token=" marker and before the next "&". Returns the
// input unchanged when no marker is present.
func ExtractToken(s string) string {
	const marker = "token="

	idx := strings.Index(s, marker)
	if idx < 0 {
		return s
	}
	rest := s[idx+len(marker):]
	if amp := strings.IndexByte(rest, '&'); amp >= 0 {
		rest = rest[:amp]
	}
	return rest
}
