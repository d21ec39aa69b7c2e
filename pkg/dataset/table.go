package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrEmptyFile      = errors.New("empty file")
	ErrMalformed      = errors.New("malformed file")
	ErrColumnNotFound = errors.New("column not found")
	ErrNotNumeric     = errors.New("column is not numeric")
)

// Kind is the parsed type of a column.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Column describes one column of a Table.
type Column struct {
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Missing int    `json:"missing" yaml:"missing"`
}

// Table is an immutable, column-ordered dataset. Numeric columns hold
// float64 values with NaN for missing cells.
type Table struct {
	source  string
	columns []Column
	index   map[string]int
	df      dataframe.DataFrame
}

// Source is the path or name the table was read from.
func (t *Table) Source() string {
	return t.source
}

// Rows returns the number of data rows.
func (t *Table) Rows() int {
	return t.df.Nrow()
}

// Columns returns the column descriptions in file order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Column returns the description of the named column.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.columns[i], nil
}

// Floats returns a copy of the named numeric column.
func (t *Table) Floats(name string) ([]float64, error) {
	if err := t.requireNumeric(name); err != nil {
		return nil, err
	}
	return t.df.Col(name).Float(), nil
}

// Between returns the rows whose value in column satisfies lo <= v < hi.
// Missing values never satisfy the bound.
func (t *Table) Between(column string, lo, hi float64) (*View, error) {
	if err := t.requireNumeric(column); err != nil {
		return nil, err
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, fmt.Errorf("invalid bounds [%v, %v)", lo, hi)
	}

	sub := t.df.
		Filter(dataframe.F{Colname: column, Comparator: series.GreaterEq, Comparando: lo}).
		Filter(dataframe.F{Colname: column, Comparator: series.Less, Comparando: hi})
	if sub.Err != nil {
		return nil, fmt.Errorf("error filtering %s to [%v, %v): %w", column, lo, hi, sub.Err)
	}

	var values []float64
	if sub.Nrow() > 0 {
		values = sub.Col(column).Float()
	}

	return &View{
		Column: column,
		Lower:  lo,
		Upper:  hi,
		Total:  t.Rows(),
		values: values,
	}, nil
}

func (t *Table) requireNumeric(name string) error {
	c, err := t.Column(name)
	if err != nil {
		return err
	}
	if c.Kind != Numeric {
		return fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, c.Kind)
	}
	return nil
}

// View is a range-filtered subset of one numeric column.
type View struct {
	Column string  `json:"column" yaml:"column"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"`
	Total  int     `json:"total" yaml:"total"`

	values []float64
}

// Len is the number of rows inside the bounds.
func (v *View) Len() int {
	return len(v.values)
}

// Values returns a copy of the filtered values in table row order.
func (v *View) Values() []float64 {
	return append([]float64(nil), v.values...)
}
