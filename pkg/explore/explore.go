package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/creditrisk/pkg/chart"
	"github.com/mchmarny/creditrisk/pkg/config"
	"github.com/mchmarny/creditrisk/pkg/dataset"
	"github.com/mchmarny/creditrisk/pkg/net"
	"github.com/mchmarny/creditrisk/pkg/stats"
)

var ErrUnknownChart = errors.New("unknown chart")

// Explorer runs the credit-risk exploration for one configuration.
type Explorer struct {
	cfg   *config.Config
	style chart.Style
}

// New validates cfg and resolves its chart style.
func New(cfg *config.Config) (*Explorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := chart.NewStyle(cfg.Style.Face, cfg.Style.Edge, cfg.Style.Width, cfg.Style.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	return &Explorer{cfg: cfg, style: s}, nil
}

// Config returns the configuration the explorer runs with.
func (e *Explorer) Config() *config.Config {
	return e.cfg
}

// Load reads input, downloading it first when it is an http(s) URL.
func (e *Explorer) Load(ctx context.Context, input string) (*dataset.Table, error) {
	path := input
	if net.IsRemote(input) {
		dir, err := os.MkdirTemp("", "creditrisk-")
		if err != nil {
			return nil, fmt.Errorf("error creating download dir: %w", err)
		}
		defer os.RemoveAll(dir)

		if path, err = net.FetchDataset(ctx, input, dir); err != nil {
			return nil, err
		}
	}

	t, err := dataset.Load(path,
		dataset.WithComma(e.cfg.Comma()),
		dataset.WithMissing(e.cfg.MissingValues...),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("loaded dataset", "input", input, "rows", t.Rows(), "cols", len(t.Columns()))
	slog.Debug("dataset source", "path", t.Source())
	return t, nil
}

// Balance splits the label column into negative and positive counts.
func (e *Explorer) Balance(t *dataset.Table) (stats.ClassBalance, error) {
	labels, err := t.Floats(e.cfg.LabelColumn)
	if err != nil {
		return stats.ClassBalance{}, err
	}

	b := stats.Balance(labels)
	if b.Unexpected > 0 {
		slog.Warn("label column has values outside {0,1}, class split is skewed",
			"column", e.cfg.LabelColumn, "rows", b.Unexpected)
	}
	return b, nil
}

// BalanceChart draws the class-balance bar chart.
func (e *Explorer) BalanceChart(b stats.ClassBalance) (*chart.Figure, error) {
	counts := b.Counts()
	values := make([]float64, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	return chart.Bar(values, chart.BarOptions{
		Title:  e.cfg.Balance.Title,
		YLabel: e.cfg.Balance.YLabel,
		Labels: e.cfg.Balance.Labels,
	}, e.style)
}

// Describe filters column to [lo, hi) and summarizes the kept values.
func (e *Explorer) Describe(t *dataset.Table, column string, lo, hi float64) (*dataset.View, *stats.Summary, error) {
	v, err := t.Between(column, lo, hi)
	if err != nil {
		return nil, nil, err
	}

	s, err := stats.Describe(v.Values())
	if err != nil {
		return nil, nil, fmt.Errorf("no %s values in [%v, %v): %w", column, lo, hi, err)
	}
	return v, s, nil
}

// Histogram filters and summarizes the configured column and draws it.
func (e *Explorer) Histogram(t *dataset.Table, spec config.HistSpec) (*HistogramReport, *chart.Figure, error) {
	v, s, err := e.Describe(t, spec.Column, spec.Lower, spec.Upper)
	if err != nil {
		return nil, nil, err
	}

	f, err := chart.Histogram(v.Values(), chart.HistOptions{
		Title:   spec.Title,
		YLabel:  spec.YLabel,
		Bins:    spec.Bins,
		ClipMin: spec.ClipMin,
		ClipMax: spec.ClipMax,
	}, e.style)
	if err != nil {
		return nil, nil, fmt.Errorf("error drawing %s: %w", spec.Column, err)
	}

	r := &HistogramReport{
		Column:  spec.Column,
		Title:   spec.Title,
		Lower:   spec.Lower,
		Upper:   spec.Upper,
		Total:   v.Total,
		File:    spec.File,
		Summary: s,
	}
	return r, f, nil
}

// Chart renders the chart saved under file without writing anything.
func (e *Explorer) Chart(t *dataset.Table, file string) (*chart.Figure, error) {
	if file == e.cfg.Balance.File {
		b, err := e.Balance(t)
		if err != nil {
			return nil, err
		}
		return e.BalanceChart(b)
	}

	spec, ok := e.cfg.HistogramByFile(file)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, file)
	}
	_, f, err := e.Histogram(t, spec)
	return f, err
}

// Run loads input and writes the balance chart then every histogram into
// the output dir. The first failure aborts; charts already written stay.
func (e *Explorer) Run(ctx context.Context, input string) (*Report, error) {
	r := &Report{
		ID:      uuid.NewString(),
		Input:   input,
		Started: time.Now().UTC(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := e.Load(ctx, input)
	if err != nil {
		return nil, err
	}
	r.Rows = t.Rows()
	r.Columns = len(t.Columns())

	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output dir %s: %w", e.cfg.OutputDir, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.Balance, err = e.Balance(t); err != nil {
		return nil, err
	}
	f, err := e.BalanceChart(r.Balance)
	if err != nil {
		return nil, err
	}
	path, err := e.save(f, e.cfg.Balance.File)
	if err != nil {
		return nil, err
	}
	r.BalanceFile = e.cfg.Balance.File
	r.Files = append(r.Files, path)
	slog.Info("class balance", "negative", r.Balance.Negative, "positive", r.Balance.Positive)

	for _, spec := range e.cfg.Histograms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h, f, err := e.Histogram(t, spec)
		if err != nil {
			return nil, err
		}
		path, err := e.save(f, spec.File)
		if err != nil {
			return nil, err
		}
		r.Files = append(r.Files, path)
		r.Histograms = append(r.Histograms, h)

		slog.Info("column summary", "column", h.Column, "count", h.Summary.Count,
			"mean", h.Summary.Mean, "std", h.Summary.Std, "min", h.Summary.Min,
			"25%", h.Summary.Q1, "50%", h.Summary.Median, "75%", h.Summary.Q3, "max", h.Summary.Max)
	}

	r.Duration = time.Since(r.Started)
	return r, nil
}

func (e *Explorer) save(f *chart.Figure, file string) (string, error) {
	path := filepath.Join(e.cfg.OutputDir, file)
	if err := f.Save(path); err != nil {
		return "", err
	}
	slog.Info("chart saved", "path", path)
	return path, nil
}
