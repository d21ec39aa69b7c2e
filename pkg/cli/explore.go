package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/mchmarny/creditrisk/pkg/config"
	"github.com/mchmarny/creditrisk/pkg/explore"
	"github.com/mchmarny/creditrisk/pkg/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	openFlagName        = "open"
	writeConfigFlagName = "write-config"
)

// exploreFlags sit on the root so the default action and the explore
// command share them.
func exploreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  openFlagName,
			Usage: "Open each written chart with the default image viewer",
		},
		&cli.StringFlag{
			Name:  writeConfigFlagName,
			Usage: "Write the effective config to this path and exit",
		},
	}
}

func newExploreCmd() *cli.Command {
	return &cli.Command{
		Name:   "explore",
		Usage:  "Write the class balance chart and the bounded ratio histograms (default command)",
		Action: cmdExplore,
	}
}

func cmdExplore(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if p := cmd.String(writeConfigFlagName); p != "" {
		if err := config.Save(p, cfg.Config); err != nil {
			return err
		}
		slog.Info("config written", "path", p)
		return nil
	}

	e, err := explore.New(cfg.Config)
	if err != nil {
		return err
	}

	r, err := e.Run(ctx, cfg.Config.Input)
	if err != nil {
		return err
	}

	if cfg.Store != nil {
		if err := cfg.Store.SaveRun(ctx, r.ToRun()); err != nil {
			return fmt.Errorf("saving run history: %w", err)
		}
		slog.Debug("run saved", "id", r.ID)
	}

	if cmd.Bool(openFlagName) {
		for _, f := range r.Files {
			openFile(f)
		}
	}

	w := cmd.Root().Writer
	if cfg.Format != formatTable {
		return encode(w, cfg.Format, r)
	}

	printBalance(w, r.Balance, cfg.Config.Balance.Labels)
	rows := make([]summaryRow, 0, len(r.Histograms))
	for _, h := range r.Histograms {
		rows = append(rows, summaryRow{column: h.Column, lower: h.Lower, upper: h.Upper, summary: h.Summary})
	}
	printSummaries(w, rows)
	return nil
}

type summaryRow struct {
	column  string
	lower   float64
	upper   float64
	summary *stats.Summary
}

func printBalance(w io.Writer, b stats.ClassBalance, labels []string) {
	table := tablewriter.NewWriter(w)
	header := make([]string, 0, len(labels)+2)
	header = append(header, labels...)
	table.SetHeader(append(header, "Total", labels[1]+" rate"))
	table.SetAutoFormatHeaders(false)
	counts := b.Counts()
	table.Append([]string{
		fmt.Sprint(counts[0]),
		fmt.Sprint(counts[1]),
		fmt.Sprint(b.Total),
		fmt.Sprintf("%.2f%%", b.PositiveRate()*100),
	})
	table.Render()

	if b.Unexpected > 0 {
		fmt.Fprintf(w, "%d rows have a label outside {0,1}\n", b.Unexpected)
	}
}

func printSummaries(w io.Writer, rows []summaryRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"column", "range", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, r := range rows {
		s := r.summary
		table.Append([]string{
			r.column,
			fmt.Sprintf("[%g, %g)", r.lower, r.upper),
			fmt.Sprint(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.Min),
			formatFloat(s.Q1),
			formatFloat(s.Median),
			formatFloat(s.Q3),
			formatFloat(s.Max),
		})
	}
	table.Render()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// openTarget hands path or URL to the OS default handler.
func openTarget(target string) error {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, target)
	return exec.Command(cmd, args...).Start() //nolint:gosec // target is a file we wrote or our own server URL
}

func openFile(path string) {
	if err := openTarget(path); err != nil {
		slog.Error("failed to open chart", "path", path, "error", err)
	}
}
