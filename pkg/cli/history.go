package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexeyco/simpletable"
	"github.com/mchmarny/creditrisk/pkg/store"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

const (
	historyLimitDefault = 10

	limitFlagName = "limit"
	idFlagName    = "id"
)

func newHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "List past explore runs, newest first",
		Action: cmdHistory,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    limitFlagName,
				Aliases: []string{"l"},
				Usage:   "Maximum number of runs to list",
				Value:   historyLimitDefault,
			},
			&cli.StringFlag{
				Name:  idFlagName,
				Usage: "Show the run with this full ID and its column summaries",
			},
		},
	}
}

func cmdHistory(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	if cfg.Store == nil {
		return fmt.Errorf("history disabled: %w", store.ErrNotInitialized)
	}

	w := cmd.Root().Writer
	if id := cmd.String(idFlagName); id != "" {
		return showRun(ctx, w, cfg, id)
	}

	runs, err := cfg.Store.ListRuns(ctx, int(cmd.Int(limitFlagName)))
	if err != nil {
		return err
	}

	if cfg.Format != formatTable {
		return encode(w, cfg.Format, runs)
	}
	printHistory(w, runs)
	return nil
}

func showRun(ctx context.Context, w io.Writer, cfg *appConfig, id string) error {
	r, err := cfg.Store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	if cfg.Format != formatTable {
		return encode(w, cfg.Format, r)
	}
	printHistory(w, []*store.Run{r})
	printSummaries(w, lo.Map(r.Summaries, func(c *store.ColumnSummary, _ int) summaryRow {
		return summaryRow{column: c.Column, lower: c.Lower, upper: c.Upper, summary: &c.Summary}
	}))
	return nil
}

func printHistory(w io.Writer, runs []*store.Run) {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "ID"},
			{Align: simpletable.AlignCenter, Text: "Started"},
			{Align: simpletable.AlignCenter, Text: "Input"},
			{Align: simpletable.AlignCenter, Text: "Rows"},
			{Align: simpletable.AlignCenter, Text: "Neg/Pos"},
			{Align: simpletable.AlignCenter, Text: "Columns"},
			{Align: simpletable.AlignCenter, Text: "Took"},
		},
	}

	for _, r := range runs {
		columns := lo.Map(r.Summaries, func(c *store.ColumnSummary, _ int) string {
			return fmt.Sprintf("%s (%d)", c.Column, c.Count)
		})
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Align: simpletable.AlignLeft, Text: shortID(r.ID)},
			{Align: simpletable.AlignLeft, Text: r.StartedAt.Local().Format(time.DateTime)},
			{Align: simpletable.AlignLeft, Text: filepath.Base(r.Input)},
			{Align: simpletable.AlignRight, Text: fmt.Sprint(r.Rows)},
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d/%d", r.Balance.Negative, r.Balance.Positive)},
			{Align: simpletable.AlignLeft, Text: strings.Join(columns, ", ")},
			{Align: simpletable.AlignRight, Text: r.Duration.Round(time.Millisecond).String()},
		})
	}

	table.SetStyle(simpletable.StyleCompactLite)
	fmt.Fprintln(w, table.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
