// Package personality rewrites model answers according to an agent's
// configured traits, tone and emotional levels.
package personality

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

const (
	sarcasticSuffix = " ...or at least, that’s what I’d say if I cared enough to be serious!"
	empathySuffix   = " I’m really sorry to hear that. How can I help you feel better?"
	byteJoke        = " By the way, did you hear about the computer that became a comedian? It had a great *byte*!"
)

// Tones with text rewrites. Any other tone leaves wording unchanged.
const (
	ToneFormal = "formal"
	ToneCasual = "casual"
)

// MaxLevel is the upper bound of HumorLevel and EmpathyLevel.
const MaxLevel = 10

// ErrLevelOutOfRange is returned by Validate.
var ErrLevelOutOfRange = errors.New("personality level out of range")

// Personality describes how an agent talks.
// CustomScript is stored for clients but never executed server-side.
type Personality struct {
	Traits       []string `json:"traits"`
	Tone         string   `json:"tone"`
	HumorLevel   int      `json:"humorLevel"`
	EmpathyLevel int      `json:"empathyLevel"`
	CustomScript string   `json:"customScript,omitempty"`
}

// Default is the personality used when a user has not saved settings.
func Default() Personality {
	return Personality{Traits: []string{}, Tone: "professional", HumorLevel: 5, EmpathyLevel: 5}
}

// Validate checks that both levels are within 0..MaxLevel.
func (p Personality) Validate() error {
	if p.HumorLevel < 0 || p.HumorLevel > MaxLevel {
		return fmt.Errorf("%w: humorLevel %d", ErrLevelOutOfRange, p.HumorLevel)
	}
	if p.EmpathyLevel < 0 || p.EmpathyLevel > MaxLevel {
		return fmt.Errorf("%w: empathyLevel %d", ErrLevelOutOfRange, p.EmpathyLevel)
	}
	return nil
}

// HasTrait reports whether the trait is set.
func (p Personality) HasTrait(trait string) bool {
	return slices.Contains(p.Traits, trait)
}

// Rand yields values in [0, 1). *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Apply rewrites response for the personality. input is the user message
// that produced it. A nil rng uses the global source.
//
// Rules run in order: traits, tone, empathy, humor. Each rule sees the
// output of the previous one.
func Apply(response string, p Personality, input string, rng Rand) string {
	if rng == nil {
		rng = globalRand{}
	}
	out := response

	if p.HasTrait("sarcastic") && p.HumorLevel > 5 {
		out += sarcasticSuffix
	}
	if p.HasTrait("witty") {
		out = strings.ReplaceAll(out, "simple", "elementary, my dear user")
	}

	switch p.Tone {
	case ToneFormal:
		out = strings.ReplaceAll(out, "Hey", "Greetings")
		out = strings.ReplaceAll(out, "you", "one")
	case ToneCasual:
		out = strings.ReplaceAll(out, "Greetings", "Hey")
		out = strings.ReplaceAll(out, "one", "you")
	}

	if p.EmpathyLevel > 7 && strings.Contains(strings.ToLower(input), "sad") {
		out += empathySuffix
	}

	// Draw only when the level allows a joke so the rng sequence stays
	// deterministic for callers that seed it.
	if p.HumorLevel > 7 && rng.Float64() > 0.7 {
		out += byteJoke
	}
	return out
}
