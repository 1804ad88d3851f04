// Package model defines the core prediction data types.
package model

import (
	"fmt"
	"strings"
)

// Color is the predicted color class of a round.
type Color string

// Size is the predicted size class of a round.
type Size string

const (
	Red    Color = "RED"
	Green  Color = "GREEN"
	Violet Color = "VIOLET"

	Small Size = "SMALL"
	Big   Size = "BIG"
)

// ValidColors are the allowed colors.
var ValidColors = map[Color]bool{
	Red:    true,
	Green:  true,
	Violet: true,
}

// ValidSizes are the allowed sizes.
var ValidSizes = map[Size]bool{
	Small: true,
	Big:   true,
}

// ParseColor parses a color case-insensitively.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	if !ValidColors[c] {
		return "", fmt.Errorf("invalid color %q (valid: RED, GREEN, VIOLET)", s)
	}
	return c, nil
}

// ParseSize parses a size case-insensitively.
func ParseSize(s string) (Size, error) {
	z := Size(strings.ToUpper(strings.TrimSpace(s)))
	if !ValidSizes[z] {
		return "", fmt.Errorf("invalid size %q (valid: SMALL, BIG)", s)
	}
	return z, nil
}

// Outcome is a (color, size) pair.
type Outcome struct {
	Color Color `json:"color" yaml:"color"`
	Size  Size  `json:"size" yaml:"size"`
}

func (o Outcome) String() string {
	return string(o.Color) + " " + string(o.Size)
}
