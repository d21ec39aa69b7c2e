package cli

import (
	"context"
	"errors"

	"github.com/mchmarny/creditrisk/pkg/explore"
	"github.com/mchmarny/creditrisk/pkg/stats"
	"github.com/urfave/cli/v3"
)

const (
	columnFlagName = "column"
	lowerFlagName  = "lower"
	upperFlagName  = "upper"
)

func newDescribeCmd() *cli.Command {
	return &cli.Command{
		Name:   "describe",
		Usage:  "Summarize one numeric column of the dataset within [lower, upper)",
		Action: cmdDescribe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     columnFlagName,
				Aliases:  []string{"c"},
				Usage:    "Numeric column to summarize",
				Required: true,
			},
			&cli.FloatFlag{
				Name:  lowerFlagName,
				Usage: "Inclusive lower bound (default: the column's configured histogram bound)",
				Value: 0,
			},
			&cli.FloatFlag{
				Name:  upperFlagName,
				Usage: "Exclusive upper bound (default: the column's configured histogram bound)",
				Value: 3,
			},
		},
	}
}

// ColumnDescription is the output of the describe command.
type ColumnDescription struct {
	Input  string         `json:"input" yaml:"input"`
	Column string         `json:"column" yaml:"column"`
	Lower  float64        `json:"lower" yaml:"lower"`
	Upper  float64        `json:"upper" yaml:"upper"`
	Total  int            `json:"total" yaml:"total"`
	Stats  *stats.Summary `json:"stats" yaml:"stats"`
}

func cmdDescribe(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	column := cmd.String(columnFlagName)

	lo, hi := cmd.Float(lowerFlagName), cmd.Float(upperFlagName)
	if spec, ok := cfg.Config.Histogram(column); ok {
		if !cmd.IsSet(lowerFlagName) {
			lo = spec.Lower
		}
		if !cmd.IsSet(upperFlagName) {
			hi = spec.Upper
		}
	}
	if lo >= hi {
		return errors.New("lower bound must be less than upper bound")
	}

	e, err := explore.New(cfg.Config)
	if err != nil {
		return err
	}

	t, err := e.Load(ctx, cfg.Config.Input)
	if err != nil {
		return err
	}

	v, s, err := e.Describe(t, column, lo, hi)
	if err != nil {
		return err
	}

	d := &ColumnDescription{
		Input:  cfg.Config.Input,
		Column: v.Column,
		Lower:  v.Lower,
		Upper:  v.Upper,
		Total:  v.Total,
		Stats:  s,
	}

	w := cmd.Root().Writer
	if cfg.Format != formatTable {
		return encode(w, cfg.Format, d)
	}
	printSummaries(w, []summaryRow{{column: d.Column, lower: d.Lower, upper: d.Upper, summary: s}})
	return nil
}
