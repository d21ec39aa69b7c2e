package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/creditrisk/pkg/store"
	"github.com/urfave/cli/v3"
)

const yesFlagName = "yes"

func newResetCmd() *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Delete all stored run history",
		Action: cmdReset,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    yesFlagName,
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation prompt",
			},
		},
	}
}

func cmdReset(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	if cfg.Store == nil {
		return fmt.Errorf("history disabled: %w", store.ErrNotInitialized)
	}

	w := cmd.Root().Writer
	if !cmd.Bool(yesFlagName) {
		fmt.Fprintf(w, "This will permanently delete all run history in %s\n", cfg.DBPath)
		fmt.Fprint(w, "Are you sure? [y/N]: ")

		answer, err := bufio.NewReader(cmd.Root().Reader).ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	n, err := cfg.Store.Clear(ctx)
	if err != nil {
		return err
	}

	slog.Info("run history deleted", "runs", n)
	fmt.Fprintln(w, "Reset complete.")
	return nil
}
