package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

var ErrNoValues = errors.New("no values to plot")

// Style is the shared look of every chart.
type Style struct {
	Face   color.Color
	Edge   color.Color
	Width  vg.Length
	Height vg.Length
}

// NewStyle builds a Style from color names (SVG names or #rrggbb) and a
// size in inches.
func NewStyle(face, edge string, widthInches, heightInches float64) (Style, error) {
	fc, err := ParseColor(face)
	if err != nil {
		return Style{}, fmt.Errorf("face color: %w", err)
	}
	ec, err := ParseColor(edge)
	if err != nil {
		return Style{}, fmt.Errorf("edge color: %w", err)
	}
	return Style{
		Face:   fc,
		Edge:   ec,
		Width:  vg.Length(widthInches) * vg.Inch,
		Height: vg.Length(heightInches) * vg.Inch,
	}, nil
}

// ParseColor resolves an SVG color name ("peru") or a hex value ("#cd853f").
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return nil, fmt.Errorf("unknown color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Figure is the drawing context of a single chart. Each chart gets its own
// Figure, nothing is shared between charts.
type Figure struct {
	plot  *plot.Plot
	style Style
}

func newFigure(title, ylabel string, s Style) *Figure {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	return &Figure{plot: p, style: s}
}

// Title returns the chart title.
func (f *Figure) Title() string {
	return f.plot.Title.Text
}

// XRange returns the displayed x axis range.
func (f *Figure) XRange() (float64, float64) {
	return f.plot.X.Min, f.plot.X.Max
}

// Save writes the figure to path; the format follows the file extension.
func (f *Figure) Save(path string) error {
	if filepath.Ext(path) == "" {
		return fmt.Errorf("no image format extension in %q", path)
	}
	if err := f.plot.Save(f.style.Width, f.style.Height, path); err != nil {
		return fmt.Errorf("error saving chart to %s: %w", path, err)
	}
	return nil
}

// WriteTo renders the figure in the given format (png, svg, pdf...) to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	wt, err := f.plot.WriterTo(f.style.Width, f.style.Height, format)
	if err != nil {
		return 0, fmt.Errorf("error rendering chart as %s: %w", format, err)
	}
	return wt.WriteTo(w)
}
