package game

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Character identifies the playable companion
type Character string

const (
	Kiki Character = "kiki" // the cat
	Toby Character = "toby" // the dog
)

// ErrUnknownCharacter is returned for any identity other than Kiki or Toby
var ErrUnknownCharacter = errors.New("unknown character")

// ParseCharacter normalizes a character name
func ParseCharacter(s string) (Character, error) {
	switch c := Character(strings.ToLower(strings.TrimSpace(s))); c {
	case Kiki, Toby:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCharacter, s)
}

// Color is the flat body colour used when the sprite is not available
func (c Character) Color() color.RGBA {
	if c == Toby {
		return color.RGBA{0x5E, 0x93, 0xFF, 0xFF}
	}
	return color.RGBA{0xFF, 0xB8, 0x4D, 0xFF}
}

// Affinity is the collectible kind that yields the bonus for this character
func (c Character) Affinity() ItemKind {
	if c == Toby {
		return ItemBone
	}
	return ItemCroissant
}

// Sprite is the asset name of the character sprite
func (c Character) Sprite() string {
	return "sprites/" + string(c) + ".png"
}

// landmarkKeywords select the themed background, matched case-insensitively
var landmarkKeywords = []string{"panthéon", "pantheon"}

// IsLandmark reports whether a title names the themed landmark
func IsLandmark(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range landmarkKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// BackgroundFor returns the background asset name for a run title
func BackgroundFor(title string) string {
	if IsLandmark(title) {
		return "bg/pantheon.png"
	}
	return "bg/default.png"
}
