package chart

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	barWidth  = 120
	edgeWidth = 1
)

// BarOptions configures a categorical bar chart.
type BarOptions struct {
	Title  string
	YLabel string
	Labels []string
}

// Bar renders one bar per value, labelled with opts.Labels.
func Bar(values []float64, opts BarOptions, s Style) (*Figure, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if len(opts.Labels) != len(values) {
		return nil, fmt.Errorf("got %d labels for %d bars", len(opts.Labels), len(values))
	}

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(barWidth))
	if err != nil {
		return nil, fmt.Errorf("error creating bar chart: %w", err)
	}
	bars.Color = s.Face
	bars.LineStyle.Color = s.Edge
	bars.LineStyle.Width = vg.Points(edgeWidth)

	f := newFigure(opts.Title, opts.YLabel, s)
	f.plot.Add(bars)
	f.plot.NominalX(opts.Labels...)
	return f, nil
}

// HistOptions configures a histogram. Bins span the full data range; only
// the part inside [ClipMin, ClipMax] is drawn.
type HistOptions struct {
	Title   string
	YLabel  string
	Bins    int
	ClipMin float64
	ClipMax float64
}

// Histogram renders values as a histogram with opts.Bins bins.
func Histogram(values []float64, opts HistOptions, s Style) (*Figure, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if opts.Bins < 1 {
		return nil, fmt.Errorf("bins must be at least 1, got %d", opts.Bins)
	}

	h, err := plotter.NewHist(plotter.Values(values), opts.Bins)
	if err != nil {
		return nil, fmt.Errorf("error creating histogram: %w", err)
	}
	h.FillColor = s.Face
	h.LineStyle.Color = s.Edge
	h.LineStyle.Width = vg.Points(edgeWidth)

	clipped := opts.ClipMax > opts.ClipMin
	if clipped {
		total := len(h.Bins)
		h.Bins = ClipBins(h.Bins, opts.ClipMin, opts.ClipMax)
		slog.Debug("histogram clipped", "bins", total, "visible", len(h.Bins), "min", opts.ClipMin, "max", opts.ClipMax)
	}

	f := newFigure(opts.Title, opts.YLabel, s)
	f.plot.Add(h)
	if clipped {
		// Add widens the axes to the data, so the display range is set after
		f.plot.X.Min = opts.ClipMin
		f.plot.X.Max = opts.ClipMax
	}
	return f, nil
}

// ClipBins drops the bins outside [lo, hi] and trims the ones straddling
// either edge.
func ClipBins(bins []plotter.HistogramBin, lo, hi float64) []plotter.HistogramBin {
	out := make([]plotter.HistogramBin, 0, len(bins))
	for _, b := range bins {
		if b.Max <= lo || b.Min >= hi {
			continue
		}
		b.Min = max(b.Min, lo)
		b.Max = min(b.Max, hi)
		out = append(out, b)
	}
	return out
}
