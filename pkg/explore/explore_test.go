package explore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/creditrisk/pkg/config"
	"github.com/mchmarny/creditrisk/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePath = "../dataset/testdata/cs-sample.csv"

func testExplorer(t *testing.T) (*Explorer, string) {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	e, err := New(cfg)
	require.NoError(t, err)
	return e, cfg.OutputDir
}

func TestNew_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Style.Face = "not-a-color"
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = config.Default()
	cfg.Histograms[0].Bins = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun(t *testing.T) {
	e, dir := testExplorer(t)

	r, err := e.Run(context.Background(), samplePath)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 10, r.Rows)
	assert.Equal(t, 12, r.Columns)
	assert.Equal(t, []int{8, 2}, r.Balance.Counts())
	assert.Equal(t, "bar_plot_defaults.png", r.BalanceFile)

	require.Len(t, r.Histograms, 2)
	util := r.Histograms[0]
	assert.Equal(t, "RevolvingUtilizationOfUnsecuredLines", util.Column)
	assert.Equal(t, 10, util.Total)
	assert.Equal(t, 9, util.Summary.Count)
	assert.InDelta(t, 0.116950644, util.Summary.Min, 1e-9)
	assert.InDelta(t, 1.5, util.Summary.Max, 1e-9)

	debt := r.Histograms[1]
	assert.Equal(t, "DebtRatio", debt.Column)
	assert.Equal(t, 8, debt.Summary.Count)

	// chart names stay relative, written paths live in Files
	assert.Equal(t, "hist_credit_exp.png", util.File)
	assert.Equal(t, "debt_ratio.png", debt.File)
	names := []string{"bar_plot_defaults.png", "hist_credit_exp.png", "debt_ratio.png"}
	require.Len(t, r.Files, 3)
	for i, name := range names {
		assert.Equal(t, filepath.Join(dir, name), r.Files[i])
		assert.FileExists(t, r.Files[i])
	}
}

func TestRun_Deterministic(t *testing.T) {
	e, _ := testExplorer(t)

	r1, err := e.Run(context.Background(), samplePath)
	require.NoError(t, err)
	r2, err := e.Run(context.Background(), samplePath)
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID, r2.ID)
	for i := range r1.Histograms {
		assert.Equal(t, r1.Histograms[i].Summary, r2.Histograms[i].Summary)
	}
}

func TestRun_MissingInputWritesNothing(t *testing.T) {
	e, dir := testExplorer(t)

	_, err := e.Run(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRun_MissingColumnKeepsEarlierCharts(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Histograms[1].Column = "NoSuchColumn"
	e, err := New(cfg)
	require.NoError(t, err)

	_, err = e.Run(context.Background(), samplePath)
	require.ErrorIs(t, err, dataset.ErrColumnNotFound)

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "bar_plot_defaults.png"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "hist_credit_exp.png"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "debt_ratio.png"))
}

func TestRun_Canceled(t *testing.T) {
	e, dir := testExplorer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, samplePath)
	assert.ErrorIs(t, err, context.Canceled)

	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRun_RemoteInput(t *testing.T) {
	b, err := os.ReadFile(samplePath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(b)
	}))
	defer srv.Close()

	e, _ := testExplorer(t)
	r, err := e.Run(context.Background(), srv.URL+"/cs-training.csv")
	require.NoError(t, err)
	assert.Equal(t, 10, r.Rows)
	assert.Equal(t, srv.URL+"/cs-training.csv", r.Input)
}

func TestLoad_Delimiter(t *testing.T) {
	b, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cs-semicolon.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(string(b), ",", ";")), 0o600))

	cfg := config.Default()
	cfg.Delimiter = ";"
	e, err := New(cfg)
	require.NoError(t, err)

	tbl, err := e.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Rows())
	assert.Len(t, tbl.Columns(), 12)
	assert.Equal(t, path, tbl.Source())

	// default delimiter sees one wide column
	e, _ = testExplorer(t)
	tbl, err = e.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, tbl.Columns(), 1)
}

func TestDescribe(t *testing.T) {
	e, _ := testExplorer(t)
	tbl, err := e.Load(context.Background(), samplePath)
	require.NoError(t, err)

	v, s, err := e.Describe(tbl, "DebtRatio", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, v.Len())
	assert.Equal(t, 8, s.Count)

	_, _, err = e.Describe(tbl, "DebtRatio", 100, 200)
	assert.Error(t, err)

	_, _, err = e.Describe(tbl, "nope", 0, 3)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestChart(t *testing.T) {
	e, _ := testExplorer(t)
	tbl, err := e.Load(context.Background(), samplePath)
	require.NoError(t, err)

	f, err := e.Chart(tbl, "bar_plot_defaults.png")
	require.NoError(t, err)
	assert.Equal(t, "Example image for Imbalanced Datasets", f.Title())

	f, err = e.Chart(tbl, "debt_ratio.png")
	require.NoError(t, err)
	assert.Equal(t, "Debt Ratio", f.Title())

	_, err = e.Chart(tbl, "other.png")
	assert.ErrorIs(t, err, ErrUnknownChart)
}

func TestReport_ToRun(t *testing.T) {
	e, _ := testExplorer(t)
	r, err := e.Run(context.Background(), samplePath)
	require.NoError(t, err)

	run := r.ToRun()
	assert.Equal(t, r.ID, run.ID)
	assert.Equal(t, r.Balance, run.Balance)
	require.Len(t, run.Summaries, 2)
	assert.Equal(t, *r.Histograms[0].Summary, run.Summaries[0].Summary)
	assert.Equal(t, r.Histograms[1].File, run.Summaries[1].File)
}
