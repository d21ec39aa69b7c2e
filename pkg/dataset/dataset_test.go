package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFile = "testdata/cs-sample.csv"

	labelColumn       = "SeriousDlqin2yrs"
	utilizationColumn = "RevolvingUtilizationOfUnsecuredLines"
	debtColumn        = "DebtRatio"
)

func loadSample(t *testing.T) *Table {
	t.Helper()
	tbl, err := Load(testFile)
	require.NoError(t, err)
	return tbl
}

func readString(t *testing.T, s string, opts ...LoadOption) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(s), "inline", opts...)
	require.NoError(t, err)
	return tbl
}

func TestLoad_Sample(t *testing.T) {
	tbl := loadSample(t)

	assert.Equal(t, testFile, tbl.Source())
	assert.Equal(t, 10, tbl.Rows())

	cols := tbl.Columns()
	require.Len(t, cols, 12)
	assert.Equal(t, "", cols[0].Name)
	assert.Equal(t, labelColumn, cols[1].Name)
	assert.Equal(t, "NumberOfDependents", cols[11].Name)

	for _, c := range tbl.Columns() {
		assert.Equal(t, Numeric, c.Kind, c.Name)
	}

	income, err := tbl.Column("MonthlyIncome")
	require.NoError(t, err)
	assert.Equal(t, 2, income.Missing)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "cs-training.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyFile},
		{"header only", "a,b\n", ErrEmptyFile},
		{"ragged row", "a,b\n1,2\n3\n", ErrMalformed},
		{"bad quoting", "a,b\n\"1,2\n", ErrMalformed},
		{"duplicate header", "a,a\n1,2\n", ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), tt.name)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRead_KindDetection(t *testing.T) {
	tbl := readString(t, "id,grade,score\n1,A,0.5\n2,B,NA\n3,,1.5\n")

	grade, err := tbl.Column("grade")
	require.NoError(t, err)
	assert.Equal(t, Categorical, grade.Kind)

	score, err := tbl.Column("score")
	require.NoError(t, err)
	assert.Equal(t, Numeric, score.Kind)
	assert.Equal(t, 1, score.Missing)

	vals, err := tbl.Floats("score")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, 0.5, vals[0])
	assert.True(t, vals[1] != vals[1], "missing value should be NaN")
	assert.Equal(t, 1.5, vals[2])

	_, err = tbl.Floats("grade")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestRead_Options(t *testing.T) {
	tbl := readString(t, "a;b\n1;-\n2;3\n", WithComma(';'), WithMissing("-"))

	b, err := tbl.Column("b")
	require.NoError(t, err)
	assert.Equal(t, Numeric, b.Kind)
	assert.Equal(t, 1, b.Missing)
}

func TestColumnErrors(t *testing.T) {
	tbl := readString(t, "name,value\nx,1\ny,2\n")

	_, err := tbl.Floats("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tbl.Floats("name")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = tbl.Between("name", 0, 3)
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = tbl.Between("missing", 0, 3)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tbl.Column("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestBetween_HalfOpenBounds(t *testing.T) {
	tbl := readString(t, "v\n-1\n0\n0.5\n1\n2\n3\n4\n")

	view, err := tbl.Between("v", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 2}, view.Values())
	assert.Equal(t, 4, view.Len())
	assert.Equal(t, 7, view.Total)
}

func TestBetween_CountsMatchPredicate(t *testing.T) {
	tbl := loadSample(t)

	for _, col := range []string{utilizationColumn, debtColumn, "MonthlyIncome"} {
		t.Run(col, func(t *testing.T) {
			all, err := tbl.Floats(col)
			require.NoError(t, err)

			want := 0
			for _, v := range all {
				if v >= 0 && v < 3 {
					want++
				}
			}

			view, err := tbl.Between(col, 0, 3)
			require.NoError(t, err)
			assert.Equal(t, want, view.Len())
			for _, v := range view.Values() {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.Less(t, v, 3.0)
			}
		})
	}
}

func TestBetween_Sample(t *testing.T) {
	tbl := loadSample(t)

	util, err := tbl.Between(utilizationColumn, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, util.Len())

	debt, err := tbl.Between(debtColumn, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, debt.Len())
}

func TestBetween_MissingValuesExcluded(t *testing.T) {
	tbl := readString(t, "v\nNA\n1\n\n2\n")

	view, err := tbl.Between("v", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, view.Values())
}

func TestBetween_EmptyResult(t *testing.T) {
	tbl := readString(t, "v\n5\n6\n")

	view, err := tbl.Between("v", 0, 3)
	require.NoError(t, err)
	assert.Zero(t, view.Len())
	assert.Empty(t, view.Values())
}

func TestBetween_DoesNotMutateTable(t *testing.T) {
	tbl := loadSample(t)
	before, err := tbl.Floats(debtColumn)
	require.NoError(t, err)

	view, err := tbl.Between(debtColumn, 0, 3)
	require.NoError(t, err)
	vals := view.Values()
	vals[0] = 99

	after, err := tbl.Floats(debtColumn)
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Rows())
	assert.Equal(t, before[0], after[0])
	assert.NotEqual(t, 99.0, view.Values()[0])
}
