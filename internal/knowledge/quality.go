// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package knowledge

import (
	"strings"
	"unicode/utf8"
)

// QualityScore rates a source from 0 to 100. Reason lists every rule that fired.
type QualityScore struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

const (
	baseScore       = 50
	minContentRunes = 100
)

// EvaluateQuality scores content by where it came from and how it reads.
func EvaluateQuality(source, content string) QualityScore {
	score := baseScore
	var reason strings.Builder
	reason.WriteString("Baseline score.")

	switch {
	case strings.Contains(source, "edu"), strings.Contains(source, "gov"), strings.Contains(source, "org"):
		score += 30
		reason.WriteString(" Reputable source (edu/gov/org).")
	case strings.Contains(source, "wikipedia.org"):
		// Unreachable: "wikipedia.org" already matches "org" above.
		score += 20
		reason.WriteString(" Wikipedia source (generally reliable but editable).")
	default:
		score -= 20
		reason.WriteString(" Unknown or less reputable source.")
	}

	if utf8.RuneCountInString(content) < minContentRunes {
		score -= 10
		reason.WriteString(" Content is too short to be reliable.")
	}
	lower := strings.ToLower(content)
	if strings.Contains(lower, "opinion") || strings.Contains(lower, "speculation") {
		score -= 15
		reason.WriteString(" Content contains speculative language.")
	}

	return QualityScore{Score: min(max(score, 0), 100), Reason: reason.String()}
}
