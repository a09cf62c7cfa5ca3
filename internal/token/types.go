// Package token defines the portable document model for design-token
// synchronization: collections of typed, multi-mode variables plus the four
// style kinds, with JSON and YAML codecs.
package token

import "fmt"

// VariableType is the resolved scalar type of a variable. The type is fixed
// at creation; every mode value must conform to it.
type VariableType string

const (
	TypeColor   VariableType = "color"
	TypeFloat   VariableType = "float"
	TypeString  VariableType = "string"
	TypeBoolean VariableType = "boolean"
)

// ParseVariableType validates a wire-format $type string.
func ParseVariableType(s string) (VariableType, error) {
	switch VariableType(s) {
	case TypeColor, TypeFloat, TypeString, TypeBoolean:
		return VariableType(s), nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// StyleKind identifies one of the four style families.
type StyleKind string

const (
	StyleColor  StyleKind = "color"
	StyleText   StyleKind = "text"
	StyleEffect StyleKind = "effect"
	StyleGrid   StyleKind = "grid"
)

// StyleKinds lists all style kinds in import order.
var StyleKinds = []StyleKind{StyleColor, StyleText, StyleEffect, StyleGrid}

// Common usage scopes. Scopes restrict where a variable's value may legally
// be bound; they are carried through export/import untouched.
const (
	ScopeAll          = "all"
	ScopeFill         = "fill"
	ScopeStroke       = "stroke"
	ScopeText         = "text"
	ScopeEffects      = "effects"
	ScopeCornerRadius = "corner_radius"
	ScopeGap          = "gap"
	ScopeWidthHeight  = "width_height"
	ScopeFontSize     = "font_size"
	ScopeLineHeight   = "line_height"
	ScopeOpacity      = "opacity"
)

// ColorBundle is the multi-format wire representation of a color literal.
// Hex is canonical; the css strings are derived conveniences.
type ColorBundle struct {
	Hex  string `json:"hex"`
	RGBA string `json:"rgba,omitempty"`
	HSLA string `json:"hsla,omitempty"`
}
