package token

import "fmt"

// VariableRef names a variable by collection and slash path. Style bound
// fields use it on the wire; import decodes it through the entity index.
type VariableRef struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
}

// StyleBundle is the document's single "_styles" entry.
type StyleBundle struct {
	ColorStyles  []*ColorStyle  `json:"colorStyles,omitempty"`
	TextStyles   []*TextStyle   `json:"textStyles,omitempty"`
	EffectStyles []*EffectStyle `json:"effectStyles,omitempty"`
	GridStyles   []*GridStyle   `json:"gridStyles,omitempty"`
}

// Empty reports whether the bundle carries no styles at all.
func (b *StyleBundle) Empty() bool {
	return b == nil ||
		len(b.ColorStyles) == 0 && len(b.TextStyles) == 0 &&
			len(b.EffectStyles) == 0 && len(b.GridStyles) == 0
}

// Count returns the total number of styles in the bundle.
func (b *StyleBundle) Count() int {
	if b == nil {
		return 0
	}
	return len(b.ColorStyles) + len(b.TextStyles) + len(b.EffectStyles) + len(b.GridStyles)
}

// PaintKind tags the paint variants of a color style layer.
type PaintKind string

const (
	PaintSolid           PaintKind = "solid"
	PaintGradientLinear  PaintKind = "gradient_linear"
	PaintGradientRadial  PaintKind = "gradient_radial"
	PaintGradientAngular PaintKind = "gradient_angular"
	PaintGradientDiamond PaintKind = "gradient_diamond"
	PaintImage           PaintKind = "image"
)

// IsGradient reports whether the kind is one of the four gradient variants.
func (k PaintKind) IsGradient() bool {
	switch k {
	case PaintGradientLinear, PaintGradientRadial, PaintGradientAngular, PaintGradientDiamond:
		return true
	}
	return false
}

// Paint is one layer of a color style. Exactly the fields matching Kind are
// populated: Color for solid, Stops for gradients, ImageHash/ImageData for
// image fills.
type Paint struct {
	Kind      PaintKind      `json:"kind"`
	Opacity   *float64       `json:"opacity,omitempty"`
	Visible   *bool          `json:"visible,omitempty"`
	BlendMode string         `json:"blendMode,omitempty"`
	Color     *ColorBundle   `json:"color,omitempty"`
	Stops     []GradientStop `json:"stops,omitempty"`
	ScaleMode string         `json:"scaleMode,omitempty"`
	ImageHash string         `json:"imageHash,omitempty"`
	ImageData string         `json:"imageData,omitempty"` // base64, present when embedded
}

// Validate checks that the paint's payload matches its kind.
func (p *Paint) Validate() error {
	switch {
	case p.Kind == PaintSolid:
		if p.Color == nil {
			return fmt.Errorf("solid paint requires a color")
		}
	case p.Kind.IsGradient():
		if len(p.Stops) < 2 {
			return fmt.Errorf("%s paint requires at least two stops", p.Kind)
		}
	case p.Kind == PaintImage:
		if p.ImageHash == "" && p.ImageData == "" {
			return fmt.Errorf("image paint requires an image hash or embedded data")
		}
	default:
		return fmt.Errorf("unknown paint kind %q", p.Kind)
	}
	return nil
}

// GradientStop is one color stop along a gradient axis.
type GradientStop struct {
	Position float64      `json:"position"`
	Color    *ColorBundle `json:"color"`
}

// ColorStyle is an ordered list of paint layers identified by name.
type ColorStyle struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Paints         []Paint                `json:"paints"`
	BoundVariables map[string]VariableRef `json:"boundVariables,omitempty"`
}

// UnitValue is a number with a unit discriminator (px / percent / auto),
// used for line height and letter spacing.
type UnitValue struct {
	Unit  string  `json:"unit"` // "px", "percent", "auto"
	Value float64 `json:"value,omitempty"`
}

// TextStyle captures the typography fields the host exposes.
type TextStyle struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	FontFamily     string                 `json:"fontFamily"`
	FontStyle      string                 `json:"fontStyle"`
	FontSize       float64                `json:"fontSize"`
	LineHeight     *UnitValue             `json:"lineHeight,omitempty"`
	LetterSpacing  *UnitValue             `json:"letterSpacing,omitempty"`
	TextCase       string                 `json:"textCase,omitempty"`       // original, upper, lower, title
	TextDecoration string                 `json:"textDecoration,omitempty"` // none, underline, strikethrough
	BoundVariables map[string]VariableRef `json:"boundVariables,omitempty"`
}

// EffectKind tags the effect variants of an effect style.
type EffectKind string

const (
	EffectDropShadow     EffectKind = "drop_shadow"
	EffectInnerShadow    EffectKind = "inner_shadow"
	EffectLayerBlur      EffectKind = "layer_blur"
	EffectBackgroundBlur EffectKind = "background_blur"
)

// Effect is one shadow or blur descriptor.
type Effect struct {
	Kind      EffectKind   `json:"kind"`
	Color     *ColorBundle `json:"color,omitempty"` // shadows only
	OffsetX   float64      `json:"offsetX,omitempty"`
	OffsetY   float64      `json:"offsetY,omitempty"`
	Radius    float64      `json:"radius"`
	Spread    float64      `json:"spread,omitempty"`
	Visible   *bool        `json:"visible,omitempty"`
	BlendMode string       `json:"blendMode,omitempty"`
}

// EffectStyle is an ordered list of effects identified by name.
type EffectStyle struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Effects        []Effect               `json:"effects"`
	BoundVariables map[string]VariableRef `json:"boundVariables,omitempty"`
}

// LayoutGrid is one layout-grid descriptor of a grid style.
type LayoutGrid struct {
	Pattern     string       `json:"pattern"` // "columns", "rows", "grid"
	SectionSize float64      `json:"sectionSize,omitempty"`
	Count       int          `json:"count,omitempty"`
	GutterSize  float64      `json:"gutterSize,omitempty"`
	Offset      float64      `json:"offset,omitempty"`
	Alignment   string       `json:"alignment,omitempty"` // "min", "max", "center", "stretch"
	Color       *ColorBundle `json:"color,omitempty"`
	Visible     *bool        `json:"visible,omitempty"`
}

// GridStyle is an ordered list of layout grids identified by name.
type GridStyle struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Grids          []LayoutGrid           `json:"grids"`
	BoundVariables map[string]VariableRef `json:"boundVariables,omitempty"`
}

// RequiredFonts returns the distinct family/style pairs the bundle's text
// styles need, in first-use order.
func (b *StyleBundle) RequiredFonts() []FontRef {
	if b == nil {
		return nil
	}
	seen := make(map[FontRef]bool)
	var out []FontRef
	for _, ts := range b.TextStyles {
		ref := FontRef{Family: ts.FontFamily, Style: ts.FontStyle}
		if ref.Family == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// FontRef names a font by family and style.
type FontRef struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}
