package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// Options describes one render request.
type Options struct {
	Text        string
	Attribution string
	Rule        DesignRule
	Format      models.AssetFormat
}

// Result carries the rendered canvas and layout metadata for the quality gate.
type Result struct {
	Image      *image.NRGBA
	TextBounds image.Rectangle
}

// Renderer draws quote text onto brand-styled canvases.
type Renderer struct {
	quoteFont       *truetype.Font
	attributionFont *truetype.Font
}

// NewRenderer parses the embedded brand faces.
func NewRenderer() (*Renderer, error) {
	quoteFont, err := truetype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse quote font: %w", err)
	}
	attributionFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse attribution font: %w", err)
	}
	return &Renderer{quoteFont: quoteFont, attributionFont: attributionFont}, nil
}

// Render draws the quote onto a canvas at the requested format.
func (r *Renderer) Render(opts Options) (*Result, error) {
	if opts.Text == "" {
		return nil, fmt.Errorf("render: empty quote text")
	}
	width, height := opts.Format.Width, opts.Format.Height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid dimensions %dx%d", width, height)
	}

	rule := opts.Rule
	background, err := ParseHexColor(rule.Palette.Background)
	if err != nil {
		return nil, err
	}
	textColor, err := ParseHexColor(rule.Palette.Text)
	if err != nil {
		return nil, err
	}
	accent, err := ParseHexColor(rule.Palette.Accent)
	if err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	if rule.Decorations.Border {
		drawBorder(canvas, accent, rule.Decorations.BorderWidth)
	}

	padding := rule.Layout.Padding
	maxWidth := int(float64(width-padding*2) * rule.Layout.MaxWidthPercent / 100)
	textAreaX := padding + (width-padding*2-maxWidth)/2

	fontSize := fitFontSize(opts.Text, rule.Typography.BaseSize)
	face := truetype.NewFace(r.quoteFont, &truetype.Options{Size: fontSize})
	defer face.Close()

	lines := wrapText(face, opts.Text, maxWidth)
	lineHeight := int(fontSize * rule.Typography.LineHeight)
	textHeight := len(lines) * lineHeight

	attributionHeight := 0
	if opts.Attribution != "" && rule.Layout.IncludeAttribution {
		attributionHeight = int(rule.Typography.AttributionSize*1.5) + 20
	}

	contentHeight := textHeight + attributionHeight
	var startY int
	switch rule.Layout.VerticalAlignment {
	case "top":
		startY = padding
	case "bottom":
		startY = height - padding - contentHeight
	default:
		startY = (height - contentHeight) / 2
	}

	fc := freetype.NewContext()
	fc.SetDPI(72)
	fc.SetFont(r.quoteFont)
	fc.SetFontSize(fontSize)
	fc.SetClip(canvas.Bounds())
	fc.SetDst(canvas)
	fc.SetSrc(image.NewUniform(textColor))

	ascent := int(fc.PointToFixed(fontSize) >> 6)
	for i, line := range lines {
		lineWidth := measure(face, line)
		x := textAreaX + (maxWidth-lineWidth)/2
		y := startY + i*lineHeight + ascent
		if _, err := fc.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, fmt.Errorf("draw quote line: %w", err)
		}
	}

	if opts.Attribution != "" && rule.Layout.IncludeAttribution {
		attrFace := truetype.NewFace(r.attributionFont, &truetype.Options{Size: rule.Typography.AttributionSize})
		defer attrFace.Close()

		attribution := "— " + opts.Attribution
		fc.SetFont(r.attributionFont)
		fc.SetFontSize(rule.Typography.AttributionSize)
		fc.SetSrc(image.NewUniform(fade(textColor)))

		attrWidth := measure(attrFace, attribution)
		x := textAreaX + (maxWidth-attrWidth)/2
		y := startY + textHeight + 20 + int(fc.PointToFixed(rule.Typography.AttributionSize)>>6)
		if _, err := fc.DrawString(attribution, freetype.Pt(x, y)); err != nil {
			return nil, fmt.Errorf("draw attribution: %w", err)
		}
	}

	return &Result{
		Image:      canvas,
		TextBounds: image.Rect(textAreaX, startY, textAreaX+maxWidth, startY+textHeight),
	}, nil
}

// ResizeMaster scales a master image to the target format. Master images
// always take precedence over text rendering.
func ResizeMaster(src image.Image, format models.AssetFormat) *image.NRGBA {
	return imaging.Fill(src, format.Width, format.Height, imaging.Center, imaging.Lanczos)
}

// DecodeImage decodes stored image bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNG serialises a canvas for upload.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fitFontSize shrinks the base size for long quotes.
func fitFontSize(text string, base float64) float64 {
	switch {
	case len(text) > 200:
		return base * 0.7
	case len(text) > 100:
		return base * 0.85
	default:
		return base
	}
}

func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	lines := make([]string, 0, 4)
	current := ""

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(face, candidate) > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func measure(face font.Face, s string) int {
	d := font.Drawer{Face: face}
	return d.MeasureString(s).Ceil()
}

func drawBorder(canvas *image.NRGBA, c color.NRGBA, width int) {
	if width <= 0 {
		width = 1
	}
	b := canvas.Bounds()
	uniform := image.NewUniform(c)
	// top, bottom, left, right strips
	draw.Draw(canvas, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+width), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(b.Min.X, b.Max.Y-width, b.Max.X, b.Max.Y), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Max.Y), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(b.Max.X-width, b.Min.Y, b.Max.X, b.Max.Y), uniform, image.Point{}, draw.Src)
}

func fade(c color.NRGBA) color.NRGBA {
	// attribution renders at ~70% strength against the background
	return color.NRGBA{
		R: uint8((int(c.R)*7 + int(255)*3) / 10),
		G: uint8((int(c.G)*7 + int(255)*3) / 10),
		B: uint8((int(c.B)*7 + int(255)*3) / 10),
		A: 255,
	}
}
