package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ManuGH/nimbus/internal/personality"
	"github.com/google/uuid"
)

// MaxAgents is the number of agents a user may configure.
const MaxAgents = 5

var (
	// ErrTooManyAgents is returned when settings hold more than MaxAgents agents.
	ErrTooManyAgents = errors.New("at most 5 agents allowed")
	// ErrInvalidSettings wraps every other settings validation failure.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Sexes accepted for the assistant and its agents.
var Sexes = []string{"male", "female", "other"}

// Avatar describes the 3D model a client renders for an agent.
type Avatar struct {
	ModelURL    string     `json:"modelUrl"`
	TextureURL  string     `json:"textureUrl,omitempty"`
	Height      float64    `json:"height"`
	SkinTone    string     `json:"skinTone"`
	Hair        AvatarPart `json:"hair"`
	Eyes        AvatarPart `json:"eyes"`
	Clothing    Clothing   `json:"clothing"`
	Accessories []string   `json:"accessories"`
	Animations  Animations `json:"animations"`
}

// AvatarPart is a styled, coloured feature (hair, eyes).
type AvatarPart struct {
	Style string `json:"style,omitempty"`
	Shape string `json:"shape,omitempty"`
	Color string `json:"color"`
}

// Clothing is the avatar outfit.
type Clothing struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
	Color  string `json:"color"`
}

// Animations are URLs of the avatar animation clips.
type Animations struct {
	Idle string `json:"idle"`
	Talk string `json:"talk"`
	Wave string `json:"wave"`
}

// Agent is an additional persona with its own dedicated thread.
type Agent struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Role        string                  `json:"role"`
	Voice       string                  `json:"voice"`
	Sex         string                  `json:"sex"`
	Personality personality.Personality `json:"personality"`
	Avatar      Avatar                  `json:"avatar"`
	ThreadID    string                  `json:"threadId,omitempty"`
}

// Settings is the per-user assistant configuration.
type Settings struct {
	UserID      string                  `json:"-"`
	AIName      string                  `json:"aiName"`
	Voice       string                  `json:"voice"`
	Sex         string                  `json:"sex"`
	Personality personality.Personality `json:"personality"`
	Avatar      Avatar                  `json:"avatar"`
	Agents      []Agent                 `json:"agents"`
	DataSources []string                `json:"dataSources"`
}

// DefaultSettings is returned for users without saved settings.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:      userID,
		AIName:      "Nimbus",
		Voice:       "default",
		Sex:         "other",
		Personality: personality.Default(),
		Avatar:      Avatar{Height: 1.7, Accessories: []string{}},
		Agents:      []Agent{},
		DataSources: []string{},
	}
}

// Validate checks agent count, sexes and personality levels.
func (s *Settings) Validate() error {
	if len(s.Agents) > MaxAgents {
		return ErrTooManyAgents
	}
	if !slices.Contains(Sexes, s.Sex) {
		return fmt.Errorf("%w: sex must be one of %v", ErrInvalidSettings, Sexes)
	}
	if err := s.Personality.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	for i, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("%w: agents[%d].name is required", ErrInvalidSettings, i)
		}
		if !slices.Contains(Sexes, a.Sex) {
			return fmt.Errorf("%w: agents[%d].sex must be one of %v", ErrInvalidSettings, i, Sexes)
		}
		if err := a.Personality.Validate(); err != nil {
			return fmt.Errorf("%w: agents[%d]: %v", ErrInvalidSettings, i, err)
		}
	}
	return nil
}

// Normalize assigns ids to new agents and replaces nil slices.
func (s *Settings) Normalize() {
	if s.Agents == nil {
		s.Agents = []Agent{}
	}
	if s.DataSources == nil {
		s.DataSources = []string{}
	}
	if s.Personality.Traits == nil {
		s.Personality.Traits = []string{}
	}
	for i := range s.Agents {
		if s.Agents[i].ID == "" {
			s.Agents[i].ID = uuid.NewString()
		}
		if s.Agents[i].Personality.Traits == nil {
			s.Agents[i].Personality.Traits = []string{}
		}
	}
}

func cloneSettings(s *Settings) *Settings {
	c := *s
	c.Agents = slices.Clone(s.Agents)
	c.DataSources = slices.Clone(s.DataSources)
	c.Personality.Traits = slices.Clone(s.Personality.Traits)
	c.Normalize()
	return &c
}
