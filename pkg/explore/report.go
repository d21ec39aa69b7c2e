package explore

import (
	"time"

	"github.com/mchmarny/creditrisk/pkg/stats"
	"github.com/mchmarny/creditrisk/pkg/store"
)

// Report is the outcome of one exploration run. BalanceFile and every
// HistogramReport.File hold the configured chart name, relative to the
// output dir; Files lists the written paths in render order.
type Report struct {
	ID          string             `json:"id" yaml:"id"`
	Input       string             `json:"input" yaml:"input"`
	Rows        int                `json:"rows" yaml:"rows"`
	Columns     int                `json:"columns" yaml:"columns"`
	Balance     stats.ClassBalance `json:"balance" yaml:"balance"`
	BalanceFile string             `json:"balance_file" yaml:"balance_file"`
	Histograms  []*HistogramReport `json:"histograms" yaml:"histograms"`
	Files       []string           `json:"files" yaml:"files"`
	Started     time.Time          `json:"started" yaml:"started"`
	Duration    time.Duration      `json:"duration" yaml:"duration"`
}

// HistogramReport is the filtered summary behind one histogram. Total is the
// row count before filtering.
type HistogramReport struct {
	Column  string         `json:"column" yaml:"column"`
	Title   string         `json:"title" yaml:"title"`
	Lower   float64        `json:"lower" yaml:"lower"`
	Upper   float64        `json:"upper" yaml:"upper"`
	Total   int            `json:"total" yaml:"total"`
	File    string         `json:"file" yaml:"file"`
	Summary *stats.Summary `json:"summary" yaml:"summary"`
}

// ToRun converts the report into its history record.
func (r *Report) ToRun() *store.Run {
	run := &store.Run{
		ID:          r.ID,
		Input:       r.Input,
		StartedAt:   r.Started,
		Duration:    r.Duration,
		Rows:        r.Rows,
		Balance:     r.Balance,
		BalanceFile: r.BalanceFile,
		Summaries:   make([]*store.ColumnSummary, 0, len(r.Histograms)),
	}

	for _, h := range r.Histograms {
		c := &store.ColumnSummary{
			Column: h.Column,
			Lower:  h.Lower,
			Upper:  h.Upper,
			File:   h.File,
		}
		if h.Summary != nil {
			c.Summary = *h.Summary
		}
		run.Summaries = append(run.Summaries, c)
	}
	return run
}
