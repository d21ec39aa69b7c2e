package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/samber/lo"
)

// DefaultMissing are the cell values read as missing.
var DefaultMissing = []string{"", "NA", "NaN"}

type loader struct {
	comma   rune
	missing map[string]bool
}

// LoadOption customizes how a file is parsed.
type LoadOption func(*loader)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) LoadOption {
	return func(l *loader) {
		l.comma = r
	}
}

// WithMissing replaces the set of cell values read as missing.
func WithMissing(values ...string) LoadOption {
	return func(l *loader) {
		l.missing = make(map[string]bool, len(values))
		for _, v := range values {
			l.missing[v] = true
		}
	}
}

// Load reads the delimited file at path. The file must have a header row.
func Load(path string, opts ...LoadOption) (*Table, error) {
	if path == "" {
		return nil, errors.New("dataset path required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset: %w", err)
	}
	defer f.Close()

	t, err := Read(f, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return t, nil
}

// Read parses a delimited stream with a header row. A column is numeric
// when every non-missing cell parses as a float.
func Read(r io.Reader, source string, opts ...LoadOption) (*Table, error) {
	l := &loader{comma: ','}
	WithMissing(DefaultMissing...)(l)
	for _, o := range opts {
		o(l)
	}

	cr := csv.NewReader(r)
	cr.Comma = l.comma

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header", ErrEmptyFile)
	}
	if len(records) == 1 {
		return nil, fmt.Errorf("%w: no data rows", ErrEmptyFile)
	}

	header := records[0]
	if dups := lo.FindDuplicates(header); len(dups) > 0 {
		return nil, fmt.Errorf("%w: duplicate column names %q", ErrMalformed, dups)
	}

	columns := make([]Column, len(header))
	types := make(map[string]series.Type, len(header))
	for i, name := range header {
		c := Column{Name: name, Kind: Numeric}
		for _, rec := range records[1:] {
			cell := strings.TrimSpace(rec[i])
			if l.missing[cell] {
				c.Missing++
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				c.Kind = Categorical
			}
		}
		columns[i] = c
		types[name] = kindType(c.Kind)
	}

	// normalize numeric missing cells so gota reads them as NaN
	for _, rec := range records[1:] {
		for i, c := range columns {
			cell := strings.TrimSpace(rec[i])
			if c.Kind == Numeric {
				if l.missing[cell] {
					cell = "NaN"
				}
				rec[i] = cell
			}
		}
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{"NaN"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, df.Err)
	}

	// gota renames blank and duplicated headers, restore the file's names
	if err := df.SetNames(header...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	slog.Debug("dataset parsed",
		"source", source,
		"rows", df.Nrow(),
		"cols", df.Ncol(),
		"categorical", lo.CountBy(columns, func(c Column) bool { return c.Kind == Categorical }),
	)

	return &Table{
		source:  source,
		columns: columns,
		index:   index,
		df:      df,
	}, nil
}

func kindType(k Kind) series.Type {
	if k == Numeric {
		return series.Float
	}
	return series.String
}
