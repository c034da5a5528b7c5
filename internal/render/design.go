package render

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// Typography controls font sizing for quote text and attribution.
type Typography struct {
	BaseSize        float64
	LineHeight      float64
	AttributionSize float64
}

// Palette holds the brand colors used for one collection.
type Palette struct {
	Background string
	Text       string
	Accent     string
}

// Layout positions the text block on the canvas.
type Layout struct {
	Padding            int
	MaxWidthPercent    float64
	VerticalAlignment  string // top, center, bottom
	IncludeAttribution bool
}

// Decorations toggles optional canvas ornaments.
type Decorations struct {
	Border      bool
	BorderWidth int
}

// DesignRule bundles everything the renderer needs for one collection.
type DesignRule struct {
	Typography  Typography
	Palette     Palette
	Layout      Layout
	Decorations Decorations
}

// Brand palette defaults per collection.
var collectionPalettes = map[models.Collection]Palette{
	models.CollectionGrowth:    {Background: "#FAF8F5", Text: "#36454F", Accent: "#8B9B7E"},
	models.CollectionCalm:      {Background: "#FAF8F5", Text: "#36454F", Accent: "#A88E73"},
	models.CollectionHome:      {Background: "#F5EFE8", Text: "#36454F", Accent: "#A88E73"},
	models.CollectionGratitude: {Background: "#FAF8F5", Text: "#4A3F35", Accent: "#8B9B7E"},
	models.CollectionSeasonal:  {Background: "#F2EDE6", Text: "#36454F", Accent: "#A88E73"},
}

var defaultPalette = Palette{Background: "#FAF8F5", Text: "#36454F", Accent: "#A88E73"}

// RuleFor returns the design rule for a collection, falling back to brand defaults.
func RuleFor(collection models.Collection) DesignRule {
	palette, ok := collectionPalettes[collection]
	if !ok {
		palette = defaultPalette
	}
	return DesignRule{
		Typography: Typography{
			BaseSize:        64,
			LineHeight:      1.4,
			AttributionSize: 28,
		},
		Palette: palette,
		Layout: Layout{
			Padding:            80,
			MaxWidthPercent:    85,
			VerticalAlignment:  "center",
			IncludeAttribution: true,
		},
		Decorations: Decorations{
			Border:      true,
			BorderWidth: 4,
		},
	}
}

// ParseHexColor converts a #RRGGBB string into a color.
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	val, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{
		R: uint8(val >> 16),
		G: uint8(val >> 8),
		B: uint8(val),
		A: 255,
	}, nil
}
