package jsoncfg

import (
	"fmt"
	"strings"
)

// StorySettings is the settings bundle submitted alongside the story text. Field names
// follow the executor's webhook contract.
type StorySettings struct {
	TargetAge            int    `json:"targetAge"`
	Harshness            int    `json:"harshness"`
	DesiredPageCount     int    `json:"desiredPageCount"`
	AestheticStyle       string `json:"aestheticStyle"`
	FreeformNotes        string `json:"freeformNotes,omitempty"`
	HeroImage            string `json:"heroImage,omitempty"`
	CharacterConsistency bool   `json:"characterConsistency"`
	QualityTier          string `json:"qualityTier"`
	AspectRatio          string `json:"aspectRatio"`
}

var allowedAspectRatios = map[string]struct{}{
	"1:1": {},
	"2:3": {},
	"3:2": {},
	"3:4": {},
	"4:3": {},
}

const (
	// DefaultTargetAge is applied when the request omits the reader age.
	DefaultTargetAge = 6
	MinTargetAge     = 1
	MaxTargetAge     = 18

	MinHarshness = 0
	MaxHarshness = 10

	// DefaultPageCount is applied when the request omits the page count.
	DefaultPageCount = 10
	MinPageCount     = 5
	MaxPageCount     = 30

	DefaultAestheticStyle = "watercolor children's book illustration, soft and whimsical, gentle brush strokes"
	DefaultQualityTier    = "standard-flash"
	DefaultAspectRatio    = "2:3"

	maxFreeformNotes = 2000
)

// Normalize fills defaults for fields whose zero value is not a meaningful choice.
// Harshness is left untouched because zero is a valid intensity.
func (s *StorySettings) Normalize() {
	if s == nil {
		return
	}
	if s.TargetAge == 0 {
		s.TargetAge = DefaultTargetAge
	}
	if s.DesiredPageCount == 0 {
		s.DesiredPageCount = DefaultPageCount
	}
	s.AestheticStyle = strings.TrimSpace(s.AestheticStyle)
	if s.AestheticStyle == "" {
		s.AestheticStyle = DefaultAestheticStyle
	}
	s.FreeformNotes = strings.TrimSpace(s.FreeformNotes)
	s.HeroImage = strings.TrimSpace(s.HeroImage)
	if strings.TrimSpace(s.QualityTier) == "" {
		s.QualityTier = DefaultQualityTier
	}
	if strings.TrimSpace(s.AspectRatio) == "" {
		s.AspectRatio = DefaultAspectRatio
	}
}

// Validate ensures the settings satisfy the executor contract before submission.
func (s StorySettings) Validate() error {
	if s.TargetAge < MinTargetAge || s.TargetAge > MaxTargetAge {
		return fmt.Errorf("targetAge must be between %d and %d", MinTargetAge, MaxTargetAge)
	}
	if s.Harshness < MinHarshness || s.Harshness > MaxHarshness {
		return fmt.Errorf("harshness must be between %d and %d", MinHarshness, MaxHarshness)
	}
	if s.DesiredPageCount < MinPageCount || s.DesiredPageCount > MaxPageCount {
		return fmt.Errorf("desiredPageCount must be between %d and %d", MinPageCount, MaxPageCount)
	}
	if strings.TrimSpace(s.AestheticStyle) == "" {
		return fmt.Errorf("aestheticStyle is required")
	}
	if len(s.FreeformNotes) > maxFreeformNotes {
		return fmt.Errorf("freeformNotes must be at most %d characters", maxFreeformNotes)
	}
	if _, ok := allowedAspectRatios[s.AspectRatio]; !ok {
		return fmt.Errorf("aspectRatio must be one of 1:1, 2:3, 3:2, 3:4, 4:3")
	}
	return nil
}
