package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/creditrisk/pkg/explore"
	"github.com/mchmarny/creditrisk/pkg/stats"
	"github.com/mchmarny/creditrisk/pkg/store"
)

// DatasetSummary is the live summary of the dataset the server was started with.
type DatasetSummary struct {
	Input      string                     `json:"input" yaml:"input"`
	Rows       int                        `json:"rows" yaml:"rows"`
	Columns    int                        `json:"columns" yaml:"columns"`
	Balance    stats.ClassBalance         `json:"balance" yaml:"balance"`
	Histograms []*explore.HistogramReport `json:"histograms" yaml:"histograms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryParamInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		return def
	}
	return i
}

func (s *server) summary() (*DatasetSummary, error) {
	b, err := s.explorer.Balance(s.table)
	if err != nil {
		return nil, err
	}

	d := &DatasetSummary{
		Input:      s.explorer.Config().Input,
		Rows:       s.table.Rows(),
		Columns:    len(s.table.Columns()),
		Balance:    b,
		Histograms: make([]*explore.HistogramReport, 0, len(s.explorer.Config().Histograms)),
	}

	for _, spec := range s.explorer.Config().Histograms {
		v, sum, err := s.explorer.Describe(s.table, spec.Column, spec.Lower, spec.Upper)
		if err != nil {
			return nil, err
		}
		d.Histograms = append(d.Histograms, &explore.HistogramReport{
			Column:  spec.Column,
			Title:   spec.Title,
			Lower:   spec.Lower,
			Upper:   spec.Upper,
			Total:   v.Total,
			File:    spec.File,
			Summary: sum,
		})
	}
	return d, nil
}

func (s *server) summaryAPIHandler(w http.ResponseWriter, _ *http.Request) {
	d, err := s.summary()
	if err != nil {
		slog.Error("failed to summarize dataset", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize dataset")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) historyAPIHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, store.ErrNotInitialized.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), queryParamInt(r, "limit", historyLimitDefault))
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		slog.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
