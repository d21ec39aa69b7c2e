package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	dirMode  = 0700
	fileMode = 0600

	DefaultInput       = "cs-training.csv"
	DefaultLabelColumn = "SeriousDlqin2yrs"
	DefaultDelimiter   = ","
)

var ErrInvalid = errors.New("invalid config")

// Style holds the presentation shared by every chart.
type Style struct {
	Face   string  `yaml:"face" json:"face"`
	Edge   string  `yaml:"edge" json:"edge"`
	Width  float64 `yaml:"width_inches" json:"width_inches"`
	Height float64 `yaml:"height_inches" json:"height_inches"`
}

// BarSpec describes the class-balance bar chart.
type BarSpec struct {
	Title  string   `yaml:"title" json:"title"`
	YLabel string   `yaml:"ylabel" json:"ylabel"`
	Labels []string `yaml:"labels" json:"labels"`
	File   string   `yaml:"file" json:"file"`
}

// HistSpec describes one bounded-range histogram. Rows are kept when
// Lower <= value < Upper; the x axis is displayed over [ClipMin, ClipMax].
type HistSpec struct {
	Column  string  `yaml:"column" json:"column"`
	Title   string  `yaml:"title" json:"title"`
	YLabel  string  `yaml:"ylabel" json:"ylabel"`
	Lower   float64 `yaml:"lower" json:"lower"`
	Upper   float64 `yaml:"upper" json:"upper"`
	Bins    int     `yaml:"bins" json:"bins"`
	ClipMin float64 `yaml:"clip_min" json:"clip_min"`
	ClipMax float64 `yaml:"clip_max" json:"clip_max"`
	File    string  `yaml:"file" json:"file"`
}

// Config represents the explorer configuration.
type Config struct {
	Input         string     `yaml:"input" json:"input"`
	LabelColumn   string     `yaml:"label_column" json:"label_column"`
	Delimiter     string     `yaml:"delimiter" json:"delimiter"`
	MissingValues []string   `yaml:"missing_values" json:"missing_values"`
	OutputDir     string     `yaml:"output_dir" json:"output_dir"`
	Style         Style      `yaml:"style" json:"style"`
	Balance       BarSpec    `yaml:"balance" json:"balance"`
	Histograms    []HistSpec `yaml:"histograms" json:"histograms"`
}

// Default returns the configuration of the credit-risk exploration run.
func Default() *Config {
	return &Config{
		Input:         DefaultInput,
		LabelColumn:   DefaultLabelColumn,
		Delimiter:     DefaultDelimiter,
		MissingValues: []string{"", "NA", "NaN"},
		OutputDir:     ".",
		Style: Style{
			Face:   "peru",
			Edge:   "blue",
			Width:  8,
			Height: 6,
		},
		Balance: BarSpec{
			Title:  "Example image for Imbalanced Datasets",
			YLabel: "Delincuencies",
			Labels: []string{"Not Default", "Default"},
			File:   "bar_plot_defaults.png",
		},
		Histograms: []HistSpec{
			{
				Column:  "RevolvingUtilizationOfUnsecuredLines",
				Title:   "Credit expenses as a ratio of spending capacity distribution",
				YLabel:  "Count",
				Lower:   0,
				Upper:   3,
				Bins:    100,
				ClipMin: 0,
				ClipMax: 1.2,
				File:    "hist_credit_exp.png",
			},
			{
				Column:  "DebtRatio",
				Title:   "Debt Ratio",
				YLabel:  "Count",
				Lower:   0,
				Upper:   3,
				Bins:    100,
				ClipMin: 0,
				ClipMax: 1.2,
				File:    "debt_ratio.png",
			},
		},
	}
}

// Validate checks the config for values no run could succeed with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config required", ErrInvalid)
	}
	if strings.TrimSpace(c.LabelColumn) == "" {
		return fmt.Errorf("%w: label_column required", ErrInvalid)
	}
	if r, n := utf8.DecodeRuneInString(c.Delimiter); n == 0 || n != len(c.Delimiter) ||
		r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return fmt.Errorf("%w: delimiter must be a single character other than quote or newline, got %q", ErrInvalid, c.Delimiter)
	}
	if c.Style.Width <= 0 || c.Style.Height <= 0 {
		return fmt.Errorf("%w: chart size must be positive, got %vx%v", ErrInvalid, c.Style.Width, c.Style.Height)
	}
	if len(c.Balance.Labels) != 2 {
		return fmt.Errorf("%w: balance needs 2 labels, got %d", ErrInvalid, len(c.Balance.Labels))
	}
	if c.Balance.File == "" {
		return fmt.Errorf("%w: balance file required", ErrInvalid)
	}

	files := map[string]bool{c.Balance.File: true}
	for i, h := range c.Histograms {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("histogram %d: %w", i, err)
		}
		if files[h.File] {
			return fmt.Errorf("%w: output file %s used twice", ErrInvalid, h.File)
		}
		files[h.File] = true
	}
	return nil
}

func (h HistSpec) Validate() error {
	if strings.TrimSpace(h.Column) == "" {
		return fmt.Errorf("%w: column required", ErrInvalid)
	}
	if h.Lower >= h.Upper {
		return fmt.Errorf("%w: %s lower bound %v must be below upper bound %v", ErrInvalid, h.Column, h.Lower, h.Upper)
	}
	if h.Bins < 1 {
		return fmt.Errorf("%w: %s bins must be at least 1, got %d", ErrInvalid, h.Column, h.Bins)
	}
	if h.ClipMin >= h.ClipMax {
		return fmt.Errorf("%w: %s clip_min %v must be below clip_max %v", ErrInvalid, h.Column, h.ClipMin, h.ClipMax)
	}
	if h.File == "" {
		return fmt.Errorf("%w: %s file required", ErrInvalid, h.Column)
	}
	return nil
}

// Comma returns the field delimiter as a rune.
func (c *Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// Histogram returns the first histogram configured for column.
func (c *Config) Histogram(column string) (HistSpec, bool) {
	for _, h := range c.Histograms {
		if h.Column == column {
			return h, true
		}
	}
	return HistSpec{}, false
}

// HistogramByFile returns the histogram written to file.
func (c *Config) HistogramByFile(file string) (HistSpec, bool) {
	for _, h := range c.Histograms {
		if h.File == file {
			return h, true
		}
	}
	return HistSpec{}, false
}

// Files lists the chart file names of a run in render order.
func (c *Config) Files() []string {
	list := []string{c.Balance.File}
	for _, h := range c.Histograms {
		list = append(list, h.File)
	}
	return list
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c to path, creating the parent directory when needed.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
