// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package textutil holds small formatting helpers shared by the API and clients.
package textutil

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout renders as "Mar 1, 2:05 PM".
const DateLayout = "Jan 2, 3:04 PM"

// FormatDate renders t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ShareResponseURL builds the link that opens a shared answer.
func ShareResponseURL(origin, response string) string {
	return shareURL(origin, "response", response)
}

// ShareCodeURL builds the link that opens a shared code block.
func ShareCodeURL(origin, code string) string {
	return shareURL(origin, "code", code)
}

func shareURL(origin, key, value string) string {
	return strings.TrimRight(origin, "/") + "/share?" + key + "=" + url.QueryEscape(value)
}

// CodeFilename is the download name for a code block in language.
func CodeFilename(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "txt"
	}
	return "code." + language
}
