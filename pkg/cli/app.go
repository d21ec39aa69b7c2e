package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mchmarny/creditrisk/pkg/config"
	"github.com/mchmarny/creditrisk/pkg/logging"
	"github.com/mchmarny/creditrisk/pkg/store"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "creditrisk"
	envPrefix    = "CREDITRISK_"
	dirMode      = 0700
	appConfigKey = "app-config"

	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"

	debugFlagName     = "debug"
	configFlagName    = "config"
	inputFlagName     = "input"
	outputDirFlagName = "output-dir"
	delimiterFlagName = "delimiter"
	dbFlagName        = "db"
	noHistoryFlagName = "no-history"
	formatFlagName    = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	// env vars feed the flags, so .env has to be in place before parsing
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("error loading .env file", "error", err)
	}

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Config *config.Config
	Format string
	DBPath string
	Debug  bool
	Store  *store.Store
}

func getConfig(cmd *cli.Command) *appConfig {
	cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig)
	if !ok {
		return &appConfig{Config: config.Default(), Format: formatJSON}
	}
	return cfg
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Explore the class balance and ratio distributions of a credit-risk dataset",
		Metadata:              map[string]any{},
		Flags:                 append(globalFlags(), exploreFlags()...),
		Action:                cmdExplore,
		Commands: []*cli.Command{
			newExploreCmd(),
			newDescribeCmd(),
			newHistoryCmd(),
			newResetCmd(),
			newServerCmd(),
		},
		Before: before,
		After:  after,
	}
}

// globalFlags are built per app so no parsed state is shared between runs.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlagName,
			Usage:   "Prints verbose logs",
			Sources: cli.EnvVars(envPrefix + "DEBUG"),
		},
		&cli.StringFlag{
			Name:    configFlagName,
			Usage:   "Path to the YAML config file (defaults are used when not set)",
			Sources: cli.EnvVars(envPrefix + "CONFIG"),
		},
		&cli.StringFlag{
			Name:    inputFlagName,
			Aliases: []string{"i"},
			Usage:   fmt.Sprintf("Dataset file or http(s) URL (default: %s)", config.DefaultInput),
			Sources: cli.EnvVars(envPrefix + "INPUT"),
		},
		&cli.StringFlag{
			Name:    outputDirFlagName,
			Aliases: []string{"o"},
			Usage:   "Directory the charts are written to (default: current dir)",
			Sources: cli.EnvVars(envPrefix + "OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    delimiterFlagName,
			Aliases: []string{"d"},
			Usage:   fmt.Sprintf("Field delimiter of the dataset (default: %q)", config.DefaultDelimiter),
			Sources: cli.EnvVars(envPrefix + "DELIMITER"),
		},
		&cli.StringFlag{
			Name:    dbFlagName,
			Usage:   "Run history database: SQLite file path or postgres:// DSN (default: ~/.creditrisk/history.db)",
			Sources: cli.EnvVars(envPrefix + "DB"),
		},
		&cli.BoolFlag{
			Name:    noHistoryFlagName,
			Usage:   "Do not open the run history database",
			Sources: cli.EnvVars(envPrefix + "NO_HISTORY"),
		},
		&cli.StringFlag{
			Name:    formatFlagName,
			Aliases: []string{"f"},
			Usage:   "Output format [json, yaml, table]",
			Value:   formatTable,
			Sources: cli.EnvVars(envPrefix + "FORMAT"),
		},
	}
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	debug := cmd.Bool(debugFlagName)
	if debug {
		logging.SetDefaultCLILogger("debug")
	}

	format := strings.ToLower(cmd.String(formatFlagName))
	switch format {
	case formatJSON, formatTable:
	case formatYAML, "yml":
		format = formatYAML
	default:
		return ctx, fmt.Errorf("unsupported format %q, expected one of: json, yaml, table", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return ctx, err
	}

	ac := &appConfig{
		Config: cfg,
		Format: format,
		Debug:  debug,
	}

	if !cmd.Bool(noHistoryFlagName) {
		ac.DBPath = cmd.String(dbFlagName)
		if ac.DBPath == "" {
			ac.DBPath = filepath.Join(getHomeDir(), store.DataFileName)
		}

		if ac.Store, err = store.Open(ctx, ac.DBPath); err != nil {
			return ctx, fmt.Errorf("opening run history: %w", err)
		}
		slog.Debug("run history opened", "driver", ac.Store.Driver())
	}

	cmd.Root().Metadata[appConfigKey] = ac
	return ctx, nil
}

func after(_ context.Context, cmd *cli.Command) error {
	if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && cfg.Store != nil {
		if err := cfg.Store.Close(); err != nil {
			slog.Debug("error closing store", "error", err)
		}
		cfg.Store = nil
	}
	return nil
}

// loadConfig reads --config (or the defaults) and applies the flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if p := cmd.String(configFlagName); p != "" {
		var err error
		if cfg, err = config.Load(p); err != nil {
			return nil, err
		}
		slog.Debug("config loaded", "path", p)
	}

	if v := cmd.String(inputFlagName); v != "" {
		cfg.Input = v
	}
	if v := cmd.String(outputDirFlagName); v != "" {
		cfg.OutputDir = v
	}
	if v := cmd.String(delimiterFlagName); v != "" {
		cfg.Delimiter = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}

	dirPath := filepath.Join(home, "."+appName)
	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dirPath)
		if err := os.Mkdir(dirPath, dirMode); err != nil {
			slog.Debug("error creating dir", "path", dirPath, "home", home, "error", err)
			return home
		}
	}
	return dirPath
}

// encode writes v as json or yaml. Table output is rendered by each command.
func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
